package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/gridbill/gridbill/internal/retention"
)

// Sweeper runs one retention pass over aged billing data.
type Sweeper interface {
	Sweep(ctx context.Context, maxAgeDays int, dryRun bool) (*retention.Report, error)
}

// RetentionProcessor executes scheduled retention sweeps.
type RetentionProcessor struct {
	logger  *slog.Logger
	sweeper Sweeper
}

// NewRetentionProcessor constructs the retention processor.
func NewRetentionProcessor(logger *slog.Logger, sweeper Sweeper) *RetentionProcessor {
	return &RetentionProcessor{logger: logger, sweeper: sweeper}
}

// Handle processes one TaskRetentionSweep task.
func (p *RetentionProcessor) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RetentionSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MaxAgeDays <= 0 {
		payload.MaxAgeDays = retention.DefaultMaxAgeDays
	}

	report, err := p.sweeper.Sweep(ctx, payload.MaxAgeDays, payload.DryRun)
	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}

	p.logger.Info("retention sweep finished",
		slog.Bool("dry_run", report.DryRun),
		slog.Time("cutoff", report.Cutoff),
		slog.Int64("readings", report.ReadingsAffected),
		slog.Int64("invoices", report.InvoicesAffected))
	return nil
}
