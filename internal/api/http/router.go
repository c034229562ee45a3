package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/legal-service/internal/api/http/handlers"
	"github.com/spec-kit/legal-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Consultations  *handlers.ConsultationsHandler
	Litigation     *handlers.LitigationHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes. Per-request ownership checks live in the
// services; the role guards here only reject callers that can never succeed.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/v1", cfg.AuthMiddleware.Handle, auth.RequireRole())
	adminOnly := auth.RequireRole(auth.RoleAdmin)
	providerOrAdmin := auth.RequireRole(auth.RoleProvider, auth.RoleAdmin)
	subscriberOrAdmin := auth.RequireRole(auth.RoleSubscriber, auth.RoleAdmin)

	consultations := v1.Group("/consultations")
	consultations.Post("/", subscriberOrAdmin, cfg.Consultations.Create)
	consultations.Get("/", cfg.Consultations.List)
	consultations.Get("/:id", cfg.Consultations.Get)
	consultations.Get("/:id/history", cfg.Consultations.History)
	consultations.Delete("/:id", adminOnly, cfg.Consultations.Delete)
	consultations.Post("/:id/assign", adminOnly, cfg.Consultations.Assign)
	consultations.Post("/:id/auto-assign", adminOnly, cfg.Consultations.AutoAssign)
	consultations.Post("/:id/start", providerOrAdmin, cfg.Consultations.Start)
	consultations.Post("/:id/respond", providerOrAdmin, cfg.Consultations.Respond)
	consultations.Post("/:id/request-info", providerOrAdmin, cfg.Consultations.RequestInfo)
	consultations.Post("/:id/complete", cfg.Consultations.Complete)
	consultations.Post("/:id/cancel", subscriberOrAdmin, cfg.Consultations.Cancel)
	consultations.Post("/:id/dispute", subscriberOrAdmin, cfg.Consultations.Dispute)
	consultations.Post("/:id/rate", subscriberOrAdmin, cfg.Consultations.Rate)
	consultations.Post("/:id/sla", adminOnly, cfg.Consultations.OverrideSLA)

	litigation := v1.Group("/litigation")
	litigation.Post("/", subscriberOrAdmin, cfg.Litigation.Create)
	litigation.Get("/", cfg.Litigation.List)
	litigation.Get("/:id", cfg.Litigation.Get)
	litigation.Get("/:id/history", cfg.Litigation.History)
	litigation.Delete("/:id", adminOnly, cfg.Litigation.Delete)
	litigation.Post("/:id/assign", adminOnly, cfg.Litigation.Assign)
	litigation.Post("/:id/auto-assign", adminOnly, cfg.Litigation.AutoAssign)
	litigation.Post("/:id/quote", providerOrAdmin, cfg.Litigation.SendQuote)
	litigation.Post("/:id/accept-quote", subscriberOrAdmin, cfg.Litigation.AcceptQuote)
	litigation.Post("/:id/pay", adminOnly, cfg.Litigation.MarkAsPaid)
	litigation.Post("/:id/refund", adminOnly, cfg.Litigation.Refund)
	litigation.Post("/:id/activate", providerOrAdmin, cfg.Litigation.Activate)
	litigation.Post("/:id/close", providerOrAdmin, cfg.Litigation.Close)
	litigation.Post("/:id/cancel", subscriberOrAdmin, cfg.Litigation.Cancel)
	litigation.Post("/:id/sla", adminOnly, cfg.Litigation.OverrideSLA)

	v1.Get("/sla/report", adminOnly, cfg.SLA.Report)
}
