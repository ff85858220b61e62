package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/gridbill/gridbill/internal/app"
	"github.com/gridbill/gridbill/internal/billing/customers"
	"github.com/gridbill/gridbill/internal/billing/invoices"
	"github.com/gridbill/gridbill/internal/billing/locations"
	"github.com/gridbill/gridbill/internal/mailer"
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

	pool, err := db.New(ctx, cfg.PGDSN, 5)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	invoiceService := invoices.NewService(logger, invoices.NewRepository(pool))
	locationService := locations.NewService(locations.NewRepository(pool))
	customerService := customers.NewService(customers.NewRepository(pool))
	retentionService := retention.NewService(logger, retention.NewRepository(pool))

	generator := report.NewGenerator(logger, report.NewClient(cfg.GotenbergURL), cfg.InvoiceDir, report.Company{
		Name:      cfg.CompanyName,
		Address:   cfg.CompanyAddress,
		TaxNumber: cfg.CompanyTaxNum,
		Phone:     cfg.CompanyPhone,
		Email:     cfg.CompanyEmail,
	})
	smtp := mailer.New(logger, mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	documentProcessor := jobs.NewDocumentProcessor(logger, invoiceService, locationService, customerService, generator)
	emailProcessor := jobs.NewEmailProcessor(logger, invoiceService, locationService, customerService, smtp)
	retentionProcessor := jobs.NewRetentionProcessor(logger, retentionService)

	sweepTask, err := jobs.NewRetentionSweepTask(cfg.RetentionDays, false)
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   metrics,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceDocument, Handler: documentProcessor.Handle},
			{Type: jobs.TaskInvoiceEmail, Handler: emailProcessor.Handle},
			{Type: jobs.TaskRetentionSweep, Handler: retentionProcessor.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RetentionCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		logger.Info("serving worker metrics", slog.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
