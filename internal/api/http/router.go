package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/api/http/handlers"
	"github.com/spec-kit/sales-crm/internal/auth"
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Employees      *handlers.EmployeesHandler
	Sales          *handlers.SalesHandler
	Attendance     *handlers.AttendanceHandler
	Reports        *handlers.ReportsHandler
	Integrity      *handlers.IntegrityHandler
	Sync           *handlers.SyncHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *limiter.Limiter
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	authGroup := app.Group("/auth")
	if cfg.LoginLimiter != nil {
		authGroup.Post("/login", rateLimitMiddleware(cfg.LoginLimiter, cfg.Logger), cfg.Auth.Login)
	} else {
		authGroup.Post("/login", cfg.Auth.Login)
	}

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Post("/auth/logout", cfg.Auth.Logout)
	protected.Get("/auth/me", cfg.Auth.Me)

	employees := protected.Group("/employees")
	employees.Get("/", cfg.Employees.List)
	employees.Get("/structure", cfg.Employees.Structure)
	employees.Post("/", auth.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Employees.Create)
	employees.Get("/:id", cfg.Employees.Get)
	employees.Patch("/:id", cfg.Employees.Update)
	employees.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Employees.Delete)
	employees.Get("/:id/team", cfg.Employees.Team)
	employees.Put("/:id/target", auth.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Employees.SetTarget)
	protected.Get("/targets", cfg.Employees.Targets)

	sales := protected.Group("/sales")
	sales.Get("/", cfg.Sales.List)
	sales.Post("/", cfg.Sales.Create)
	sales.Get("/:id", cfg.Sales.Get)
	sales.Put("/:id", cfg.Sales.Update)
	sales.Delete("/:id", cfg.Sales.Delete)

	attendance := protected.Group("/attendance")
	attendance.Get("/", cfg.Attendance.List)
	attendance.Post("/check-in", cfg.Attendance.CheckIn)
	attendance.Post("/check-out", cfg.Attendance.CheckOut)
	attendance.Post("/mark", auth.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Attendance.Mark)

	reports := protected.Group("/reports")
	reports.Get("/sales", cfg.Reports.Sales)
	reports.Get("/attendance", cfg.Reports.Attendance)

	exports := protected.Group("/exports")
	exports.Get("/sales.pdf", cfg.Reports.ExportSalesPDF)
	exports.Get("/:kind", cfg.Reports.ExportCSV)

	integrity := protected.Group("/integrity", auth.RequireRole(domain.RoleAdmin))
	integrity.Get("/validate", cfg.Integrity.Validate)
	integrity.Post("/repair", cfg.Integrity.Repair)

	syncGroup := protected.Group("/sync")
	syncGroup.Get("/stats", cfg.Sync.Stats)
	syncGroup.Post("/force", cfg.Sync.Force)
	syncGroup.Post("/visibility", cfg.Sync.Visibility)
	syncGroup.Get("/events", cfg.Sync.Events)
}
