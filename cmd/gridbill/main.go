package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/gridbill/gridbill/internal/app"
	"github.com/gridbill/gridbill/internal/billing/customers"
	"github.com/gridbill/gridbill/internal/billing/invoices"
	"github.com/gridbill/gridbill/internal/billing/locations"
	"github.com/gridbill/gridbill/internal/billing/readings"
	"github.com/gridbill/gridbill/internal/billing/stats"
	"github.com/gridbill/gridbill/internal/observability"
	"github.com/gridbill/gridbill/internal/platform/db"
	"github.com/gridbill/gridbill/internal/retention"
	"github.com/gridbill/gridbill/jobs"
	"github.com/gridbill/gridbill/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, 10)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	validate := validator.New()
	metrics := observability.NewMetrics()

	customerService := customers.NewService(customers.NewRepository(pool))
	locationService := locations.NewService(locations.NewRepository(pool))

	statsCache := stats.NewCache(redisClient, 10*time.Minute)
	statsSource := stats.NewRepository(pool)
	statsService := stats.NewService(statsSource, statsCache)
	dashboardService := stats.NewDashboardService(logger, statsSource, statsCache)

	ingestZone, err := time.LoadLocation(cfg.IngestTimezone)
	if err != nil {
		logger.Warn("load ingest timezone", slog.String("tz", cfg.IngestTimezone), slog.Any("error", err))
		ingestZone = nil
	}
	readingService := readings.NewService(logger, readings.NewRepository(pool), readings.ServiceConfig{
		MaxBatch:          cfg.ImportMaxBatch,
		MaxReportedErrors: cfg.ImportMaxErrors,
		Timezone:          ingestZone,
	})
	readingService.SetInvalidator(statsService)
	readingService.SetRecorder(metrics)

	invoiceService := invoices.NewService(logger, invoices.NewRepository(pool))
	invoiceService.SetRecorder(metrics)
	retentionService := retention.NewService(logger, retention.NewRepository(pool))

	pdfClient := report.NewClient(cfg.GotenbergURL)

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("queue inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CustomerHandler:  customers.NewHandler(logger, customerService, validate),
		LocationHandler:  locations.NewHandler(logger, locationService, validate),
		ReadingHandler:   readings.NewHandler(logger, readingService, validate),
		StatsHandler:     stats.NewHandler(logger, statsService, dashboardService),
		InvoiceHandler:   invoices.NewHandler(logger, invoiceService, validate, queueClient),
		RetentionHandler: retention.NewHandler(logger, retentionService),
		ReportHandler:    report.NewHandler(pdfClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
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
