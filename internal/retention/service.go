package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxAgeDays keeps a year of data when the caller does not say
// otherwise.
const DefaultMaxAgeDays = 365

// Report describes one sweep, either simulated or executed.
type Report struct {
	DryRun           bool      `json:"dry_run"`
	Cutoff           time.Time `json:"cutoff"`
	ReadingsAffected int64     `json:"readings_affected"`
	InvoicesAffected int64     `json:"invoices_affected"`
}

// Service runs retention sweeps.
type Service struct {
	logger *slog.Logger
	repo   Repository
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// Sweep removes data older than maxAgeDays. A dry run only counts what an
// executed sweep would remove.
func (s *Service) Sweep(ctx context.Context, maxAgeDays int, dryRun bool) (*Report, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}
	cutoff := s.now().AddDate(0, 0, -maxAgeDays)

	if dryRun {
		readingCount, err := s.repo.CountOldReadings(ctx, cutoff)
		if err != nil {
			return nil, fmt.Errorf("count readings: %w", err)
		}
		invoiceCount, err := s.repo.CountOldInvoices(ctx, cutoff)
		if err != nil {
			return nil, fmt.Errorf("count invoices: %w", err)
		}
		return &Report{
			DryRun:           true,
			Cutoff:           cutoff,
			ReadingsAffected: readingCount,
			InvoicesAffected: invoiceCount,
		}, nil
	}

	readingsDeleted, invoicesDeleted, err := s.repo.DeleteOld(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("retention sweep: %w", err)
	}

	s.logger.Info("retention sweep finished",
		slog.Time("cutoff", cutoff),
		slog.Int64("readings_deleted", readingsDeleted),
		slog.Int64("invoices_deleted", invoicesDeleted))

	return &Report{
		Cutoff:           cutoff,
		ReadingsAffected: readingsDeleted,
		InvoicesAffected: invoicesDeleted,
	}, nil
}
