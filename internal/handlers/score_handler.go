package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"leakbox/internal/dto"
	"leakbox/internal/services"
)

type ScoreHandler struct {
	service *services.ScoreService
}

func NewScoreHandler(service *services.ScoreService) *ScoreHandler {
	return &ScoreHandler{service: service}
}

func (h *ScoreHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	entry, err := h.service.Submit(c.Context(), req.PlayerName, req.Character, req.Score, req.FoundCount)
	if err != nil {
		if errors.Is(err, services.ErrInvalidScore) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to save score",
		})
	}

	return c.JSON(entry)
}

func (h *ScoreHandler) Leaderboard(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	scores, total, err := h.service.Leaderboard(c.Context(), page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch leaderboard",
		})
	}

	return c.JSON(fiber.Map{
		"scores": scores,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}
