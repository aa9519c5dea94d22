package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leakbox/internal/auth"
	"leakbox/internal/handlers"
)

func Setup(
	app *fiber.App,
	gate *auth.Gate,
	reportHandler *handlers.ReportHandler,
	scoreHandler *handlers.ScoreHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	api.Get("/health", healthHandler.Check)
	api.Get("/info", healthHandler.Info)

	// Reports. Submit and moderation are gated by the shared secret;
	// listing audited reports and fetching attachments are public.
	api.Post("/reports/submit", gate.Require(), reportHandler.Submit)
	api.Post("/reports/audit", gate.Require(), reportHandler.Audit)
	api.Post("/reports/delete", gate.Require(), reportHandler.Delete)
	api.Get("/reports/list", reportHandler.List)
	api.Get("/uploads/:reference", reportHandler.GetAttachment)

	// Mini-game leaderboard (public).
	api.Post("/scores/submit", scoreHandler.Submit)
	api.Get("/scores/leaderboard", scoreHandler.Leaderboard)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
