package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	SLA            *handlers.SLAHandler
	Rules          *handlers.RulesHandler
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

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin, domain.RoleTech), cfg.Tickets.Assign)
	tickets.Post("/:id/transition", auth.RequireRole(domain.RoleAdmin, domain.RoleTech), cfg.Tickets.Transition)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)
	tickets.Get("/:id/assignments", cfg.Tickets.ListAssignments)
	tickets.Get("/:id/audit", cfg.Tickets.ListAudit)

	api.Get("/alerts", cfg.SLA.ListAlerts)
	api.Post("/sla/check", auth.RequireAdmin(), cfg.SLA.RunCheck)

	rules := api.Group("/auto-assign-rules", auth.RequireAdmin())
	rules.Get("/", cfg.Rules.List)
	rules.Post("/", cfg.Rules.Create)
	rules.Post("/:id/deactivate", cfg.Rules.Deactivate)
}
