package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sales-crm/internal/api/http"
	"github.com/spec-kit/sales-crm/internal/config"
	"github.com/spec-kit/sales-crm/internal/observability"
	"github.com/spec-kit/sales-crm/internal/persistence"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
	"github.com/spec-kit/sales-crm/internal/service"
	"github.com/spec-kit/sales-crm/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open record store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer store.Close()

	collections := repository.NewCollections(store, cfg.Store.Namespace, cfg.Sync.Capacity(), logger)
	if cfg.Store.Seed {
		if err := collections.Bootstrap(ctx); err != nil {
			logger.Fatal("failed to seed record store", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()
	syncManager := realtime.NewManager(collections, logger, metrics, realtime.Options{Interval: cfg.Sync.Interval()})

	stopActivity := worker.StartActivityWorker(service.NewActivityService(syncManager, logger))
	defer stopActivity()

	if err := syncManager.Start(ctx); err != nil {
		logger.Fatal("failed to start sync manager", zap.Error(err))
	}
	defer syncManager.Stop()

	app, err := httptransport.NewApp(ctx, httptransport.Dependencies{
		Config:      cfg,
		Collections: collections,
		Sync:        syncManager,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		logger.Fatal("failed to build http app", zap.Error(err))
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Backend))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.ShutdownWithTimeout(10 * time.Second)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
