package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cs-ops-service/internal/api/http/handlers"
	"github.com/spec-kit/cs-ops-service/internal/auth"
	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Agents         *handlers.AgentsHandler
	Customers      *handlers.CustomersHandler
	Cycles         *handlers.CyclesHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Agents.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	authProtected.Get("/me", cfg.Agents.Me)
	authProtected.Post("/password/change", cfg.Agents.ChangePassword)

	customers := app.Group("/customers", cfg.AuthMiddleware.Handle, auth.RequireRole())
	customers.Post("", cfg.Customers.CreateCustomer)
	customers.Get("", cfg.Customers.ListCustomers)
	customers.Get("/:id", cfg.Customers.GetCustomer)
	customers.Post("/:id/recompute", cfg.Customers.Recompute)
	customers.Post("/:id/bugs", cfg.Customers.AddBug)
	customers.Patch("/:id/bugs/:bugId", cfg.Customers.UpdateBug)
	customers.Post("/:id/usage", cfg.Customers.RecordUsage)
	customers.Get("/:id/usage", cfg.Customers.GetUsage)

	customers.Put("/:id/tier-override", auth.RequireRole(domain.AgentRoleAdmin), cfg.Customers.OverrideTier)
	customers.Delete("/:id/tier-override", auth.RequireRole(domain.AgentRoleAdmin), cfg.Customers.ReleaseOverride)

	customers.Post("/:id/cycles", cfg.Cycles.AssignCycle)
	customers.Get("/:id/cycles", cfg.Cycles.ListCycles)
	customers.Get("/:id/cycles/active", cfg.Cycles.ActiveCycle)
	customers.Patch("/:id/cycles/:cycleId/actions/:index", cfg.Cycles.UpdateAction)
	customers.Post("/:id/cycles/:cycleId/cancel", cfg.Cycles.CancelCycle)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.AgentRoleAdmin))
	admin.Get("/segment-config", cfg.Admin.GetSegmentConfig)
	admin.Put("/segment-config", cfg.Admin.UpdateSegmentConfig)
	admin.Post("/recompute", cfg.Admin.RecomputeAll)
	admin.Post("/sync", cfg.Admin.SyncTracker)
	admin.Get("/worker", cfg.Admin.WorkerStatus)

	admin.Post("/agents", cfg.Agents.CreateAgent)
}
