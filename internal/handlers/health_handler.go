package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"leakbox/internal/config"
	"leakbox/internal/database"
	"leakbox/internal/dto"
	"leakbox/internal/store"
)

type HealthHandler struct {
	cfg     *config.Config
	reports *store.ReportStore
}

func NewHealthHandler(cfg *config.Config, reports *store.ReportStore) *HealthHandler {
	return &HealthHandler{cfg: cfg, reports: reports}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	})
}

// Info exposes runtime diagnostics for deployment troubleshooting. No
// filesystem paths are included.
func (h *HealthHandler) Info(c *fiber.Ctx) error {
	total, pending, err := h.reports.Counts(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read report counts",
		})
	}

	return c.JSON(dto.InfoResponse{
		DBDriver:       h.cfg.DBDriver,
		StorageBackend: h.cfg.StorageBackend,
		ReportCount:    total,
		PendingCount:   pending,
	})
}
