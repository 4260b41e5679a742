package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Compliance     *handlers.ComplianceHandler
	Alerts         *handlers.AlertsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	api.Get("/tickets/:id/compliance", cfg.Compliance.TicketCompliance)
	api.Post("/tickets/:id/evaluate", cfg.Compliance.EvaluateTicket)
	api.Get("/compliance/summary", cfg.Compliance.Summary)

	api.Get("/alerts", cfg.Alerts.List)
	api.Post("/alerts/:id/ack", cfg.Alerts.Acknowledge)
}
