package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridbill/gridbill/internal/billing"
)

// numberRetries bounds how often a lost numbering race is retried before the
// conflict is surfaced to the caller.
const numberRetries = 3

// CreationRecorder counts created invoices for monitoring.
type CreationRecorder interface {
	IncInvoicesCreated()
}

// Service handles invoice creation and lifecycle.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	now      func() time.Time
	recorder CreationRecorder
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// SetRecorder registers a counter for created invoices.
func (s *Service) SetRecorder(rec CreationRecorder) {
	s.recorder = rec
}

// Create computes and persists an invoice for a location and period. The
// calculation, numbering, header and line snapshots commit in one
// transaction; a numbering race is retried a few times with a fresh
// sequence before ErrNumberConflict reaches the caller.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceDetail, error) {
	if req.PeriodEnd.Before(req.PeriodStart) {
		return nil, fmt.Errorf("period end before start: %w", billing.ErrValidation)
	}

	exists, err := s.repo.LocationExists(ctx, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("check location: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("location %d: %w", req.LocationID, billing.ErrNotFound)
	}

	items, err := s.repo.ReadingsForPeriod(ctx, req.LocationID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}

	total, lines, err := Calculate(items)
	if err != nil {
		return nil, err
	}

	invoice := Invoice{
		LocationID:  req.LocationID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		TotalAmount: total,
		Status:      StatusCreated,
		IssuedAt:    s.now(),
	}

	var id int64
	for attempt := 0; ; attempt++ {
		id, err = s.repo.Create(ctx, invoice, lines)
		if err == nil {
			break
		}
		if errors.Is(err, billing.ErrNumberConflict) && attempt < numberRetries {
			s.logger.Warn("invoice number race lost, retrying",
				slog.Int("attempt", attempt+1))
			continue
		}
		return nil, err
	}

	created, createdLines, err := s.repo.GetWithLines(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.IncInvoicesCreated()
	}
	s.logger.Info("invoice created",
		slog.String("number", created.Number),
		slog.Int64("location_id", created.LocationID),
		slog.String("total", created.TotalAmount.StringFixed(2)))
	return &InvoiceDetail{Invoice: *created, LineItems: createdLines}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*InvoiceDetail, error) {
	invoice, lines, err := s.repo.GetWithLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetail{Invoice: *invoice, LineItems: lines}, nil
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// AttachDocument records a rendered document and advances the invoice to
// DOCUMENT_GENERATED.
func (s *Service) AttachDocument(ctx context.Context, id int64, ref string) error {
	invoice, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := ValidateTransition(invoice.Status, StatusDocumentGenerated); err != nil {
		return err
	}
	return s.repo.SetDocumentRef(ctx, id, ref, StatusDocumentGenerated)
}

// MarkSent advances the invoice to SENT after a confirmed delivery. A failed
// delivery never calls this, leaving the invoice untouched.
func (s *Service) MarkSent(ctx context.Context, id int64) error {
	invoice, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := ValidateTransition(invoice.Status, StatusSent); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, id, StatusSent)
}

// Delete removes an invoice and its line items. A sent invoice is already
// with the customer and stays.
func (s *Service) Delete(ctx context.Context, id int64) error {
	invoice, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == StatusSent {
		return fmt.Errorf("invoice %s is sent: %w", invoice.Number, billing.ErrIntegrityViolation)
	}
	return s.repo.Delete(ctx, id)
}
