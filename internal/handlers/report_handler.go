package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"leakbox/internal/auth"
	"leakbox/internal/dto"
	"leakbox/internal/services"
	"leakbox/internal/storage"
	"leakbox/internal/store"
)

type ReportHandler struct {
	service *services.ReportService
	gate    *auth.Gate
}

func NewReportHandler(service *services.ReportService, gate *auth.Gate) *ReportHandler {
	return &ReportHandler{service: service, gate: gate}
}

// Submit accepts a multipart form with a "content" field and zero or more
// "files" parts. The credential gate runs as middleware before this.
func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid multipart form",
		})
	}

	var uploads []services.Upload
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Unreadable file part: " + fh.Filename,
			})
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Unreadable file part: " + fh.Filename,
			})
		}
		uploads = append(uploads, services.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	report, err := h.service.Submit(c.Context(), c.FormValue("content"), uploads)
	if err != nil {
		if services.IsValidationError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to store report",
		})
	}

	return c.JSON(report)
}

func (h *ReportHandler) Audit(c *fiber.Ctx) error {
	var req dto.AuditReportRequest
	if err := c.BodyParser(&req); err != nil || req.ID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.service.Audit(c.Context(), req.ID, req.Audited)
	if err != nil {
		if errors.Is(err, store.ErrReportNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to update report",
		})
	}

	return c.JSON(report)
}

func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	var req dto.DeleteReportRequest
	if err := c.BodyParser(&req); err != nil || req.ID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if err := h.service.Delete(c.Context(), req.ID); err != nil {
		if errors.Is(err, store.ErrReportNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete report",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// List serves the public feed of audited reports. Pending or full
// listings are a moderation view and require the credential.
func (h *ReportHandler) List(c *fiber.Ctx) error {
	filter := store.Filter(c.Query("filter", string(store.FilterAudited)))
	switch filter {
	case store.FilterAll, store.FilterPending, store.FilterAudited:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid filter: must be all, pending, or audited",
		})
	}
	if filter != store.FilterAudited && !h.gate.Authorize(c.Get(auth.HeaderName)) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid or missing report password",
		})
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	reports, total, err := h.service.List(c.Context(), filter, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}

	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetAttachment serves stored attachment bytes for direct links.
func (h *ReportHandler) GetAttachment(c *fiber.Ctx) error {
	data, contentType, err := h.service.Attachment(c.Context(), c.Params("reference"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Attachment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read attachment",
		})
	}

	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}
