package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/api/http/handlers"
	"github.com/spec-kit/sales-crm/internal/auth"
	"github.com/spec-kit/sales-crm/internal/config"
	"github.com/spec-kit/sales-crm/internal/observability"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
	"github.com/spec-kit/sales-crm/internal/service"
)

// Dependencies are the long-lived components the HTTP app is built on.
type Dependencies struct {
	Config      *config.Config
	Collections *repository.Collections
	Sync        *realtime.Manager
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Clock       service.Clock
}

// NewApp builds the services and handlers and returns a fiber app with every
// route registered. Event streams close when ctx is done.
func NewApp(ctx context.Context, deps Dependencies) (*fiber.App, error) {
	cfg := deps.Config
	logger := deps.Logger

	loginLimiter, err := NewRateLimiter(cfg.RateLimit.Login)
	if err != nil {
		return nil, fmt.Errorf("invalid login rate %q: %w", cfg.RateLimit.Login, err)
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Collections: deps.Collections,
		Sync:        deps.Sync,
		Logger:      logger,
		Clock:       deps.Clock,
	})
	employeeService := service.NewEmployeeService(service.EmployeeDependencies{
		Collections: deps.Collections,
		Sync:        deps.Sync,
		Logger:      logger,
		Clock:       deps.Clock,
	})
	salesService := service.NewSalesService(service.SalesDependencies{
		Collections: deps.Collections,
		Sync:        deps.Sync,
		Logger:      logger,
		Clock:       deps.Clock,
	})
	attendanceService := service.NewAttendanceService(cfg.Attendance, service.AttendanceDependencies{
		Collections: deps.Collections,
		Sync:        deps.Sync,
		Logger:      logger,
		Clock:       deps.Clock,
	})
	reportService := service.NewReportService(deps.Collections)
	exportService := service.NewExportService(service.ExportDependencies{
		Collections: deps.Collections,
		Reports:     reportService,
		Logger:      logger,
		Clock:       deps.Clock,
	})
	integrityService := service.NewIntegrityService(service.IntegrityDependencies{
		Collections: deps.Collections,
		Sync:        deps.Sync,
		Logger:      logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), deps.Collections)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, deps.Metrics, cfg.App.RequestTimeout())

	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Backend, deps.Collections.Store()),
		Auth:           handlers.NewAuthHandler(authService),
		Employees:      handlers.NewEmployeesHandler(employeeService),
		Sales:          handlers.NewSalesHandler(salesService),
		Attendance:     handlers.NewAttendanceHandler(attendanceService),
		Reports:        handlers.NewReportsHandler(reportService, exportService),
		Integrity:      handlers.NewIntegrityHandler(integrityService),
		Sync:           handlers.NewSyncHandler(ctx, deps.Sync, deps.Collections, logger),
		AuthMiddleware: authMiddleware,
		LoginLimiter:   loginLimiter,
		Metrics:        deps.Metrics,
		Logger:         logger,
	})
	return app, nil
}
