package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/kombat1337-ui/Support-bot/internal/api/http/handlers"
	"github.com/kombat1337-ui/Support-bot/internal/auth"
	"github.com/kombat1337-ui/Support-bot/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	tickets := api.Group("/tickets")
	tickets.Get("/:number", cfg.Tickets.GetTicket)
	tickets.Get("/:number/transcript", cfg.Tickets.Transcript)
}
