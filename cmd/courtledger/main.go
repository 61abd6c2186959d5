package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtledger/courtledger/internal/app"
	"github.com/courtledger/courtledger/internal/coa"
	"github.com/courtledger/courtledger/internal/events"
	"github.com/courtledger/courtledger/internal/inventory"
	"github.com/courtledger/courtledger/internal/ledger"
	"github.com/courtledger/courtledger/internal/membership"
	"github.com/courtledger/courtledger/internal/observability"
	"github.com/courtledger/courtledger/internal/platform/cache"
	"github.com/courtledger/courtledger/internal/platform/db"
	"github.com/courtledger/courtledger/internal/pricing"
	"github.com/courtledger/courtledger/internal/reports"
	"github.com/courtledger/courtledger/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caches disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()

	idempotency := shared.NewIdempotencyStore(pool)
	audit := shared.NewAuditLogger(pool)

	accountRepo := coa.NewRepository(pool)
	accountService := coa.NewService(accountRepo)
	accountHandler := coa.NewHandler(logger, accountService)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, audit)
	ledgerService.WithMetrics(metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, audit, idempotency)
	inventoryService.WithMetrics(metrics)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	membershipRepo := membership.NewRepository(pool)
	membershipResolver := membership.NewResolver(membershipRepo, logger)
	pricingHandler := pricing.NewHandler(logger, membershipResolver)

	eventRepo := events.NewRepository(pool)
	tierCache := cache.NewJSONCache(redisClient, cfg.PriceTierTTL)
	eventService := events.NewService(logger, eventRepo, inventoryService, tierCache)
	eventHandler := events.NewHandler(logger, eventService)

	reportCache := cache.NewJSONCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(logger, ledgerService, reportCache)
	reportHandler := reports.NewHandler(logger, reportService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		AccountHandler:   accountHandler,
		LedgerHandler:    ledgerHandler,
		InventoryHandler: inventoryHandler,
		EventHandler:     eventHandler,
		PricingHandler:   pricingHandler,
		ReportHandler:    reportHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
