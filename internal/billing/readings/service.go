package readings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/billing/money"
)

// ServiceConfig bounds ingestion. Zero values fall back to the defaults.
type ServiceConfig struct {
	// MaxBatch caps the data records accepted by one bulk call or import
	// file. Default 10000.
	MaxBatch int
	// MaxReportedErrors caps the example errors carried in a result; the
	// true count is always reported alongside. Default 10.
	MaxReportedErrors int
	// Timezone interprets naive import timestamps. Default Europe/Ljubljana,
	// falling back to UTC when the zone database lacks it.
	Timezone *time.Location
}

func (c *ServiceConfig) applyDefaults() {
	if c.MaxBatch <= 0 {
		c.MaxBatch = 10000
	}
	if c.MaxReportedErrors <= 0 {
		c.MaxReportedErrors = 10
	}
	if c.Timezone == nil {
		loc, err := time.LoadLocation("Europe/Ljubljana")
		if err != nil {
			loc = time.UTC
		}
		c.Timezone = loc
	}
}

// CacheInvalidator drops derived aggregates after reading mutations.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// IngestRecorder counts accepted readings for monitoring.
type IngestRecorder interface {
	AddReadingsIngested(n int)
}

// Service handles reading ingestion and lifecycle.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	cfg         ServiceConfig
	invalidator CacheInvalidator
	recorder    IngestRecorder
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo Repository, cfg ServiceConfig) *Service {
	cfg.applyDefaults()
	return &Service{logger: logger, repo: repo, cfg: cfg}
}

// SetInvalidator registers a cache to drop whenever readings change.
func (s *Service) SetInvalidator(inv CacheInvalidator) {
	s.invalidator = inv
}

// SetRecorder registers a counter for accepted readings.
func (s *Service) SetRecorder(rec IngestRecorder) {
	s.recorder = rec
}

func (s *Service) recordIngested(n int) {
	if s.recorder != nil {
		s.recorder.AddReadingsIngested(n)
	}
}

// invalidate is best effort: a stale summary cache never fails a write.
func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("summary cache invalidation failed", slog.Any("error", err))
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Reading, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListReadingsRequest) ([]Reading, int, error) {
	if req.Limit <= 0 {
		req.Limit = 1000
	}
	return s.repo.List(ctx, req)
}

// Create persists a single reading. The storage unique constraint on
// (location_id, taken_at) is the dedup authority; a lost race surfaces as
// ErrDuplicateReading regardless of any prior existence check.
func (s *Service) Create(ctx context.Context, req CreateReadingRequest) (*Reading, error) {
	if err := validateValues(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.LocationExists(ctx, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("check location: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("location %d: %w", req.LocationID, billing.ErrNotFound)
	}

	id, err := s.repo.Create(ctx, Reading{
		LocationID:     req.LocationID,
		TakenAt:        req.TakenAt,
		ConsumptionKWh: money.RoundConsumption(req.ConsumptionKWh),
		UnitPrice:      money.RoundPrice(req.UnitPrice),
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.recordIngested(1)
	return s.repo.Get(ctx, id)
}

// CreateBulk is the tolerant API ingestion path: every record is checked
// independently and a failing record never aborts its siblings. The accepted
// subset commits in a single transaction; zero accepted records commit
// nothing.
func (s *Service) CreateBulk(ctx context.Context, req BulkCreateRequest) (*BulkCreateResult, error) {
	if len(req.Readings) == 0 {
		return nil, fmt.Errorf("empty reading list: %w", billing.ErrValidation)
	}
	if len(req.Readings) > s.cfg.MaxBatch {
		return nil, fmt.Errorf("%d records exceed the cap of %d: %w",
			len(req.Readings), s.cfg.MaxBatch, billing.ErrBatchTooLarge)
	}

	locationOK := make(map[int64]bool)
	seen := make(map[batchKey]bool)
	var accepted []Reading
	var errCount int
	var examples []string

	record := func(msg string) {
		errCount++
		if len(examples) < s.cfg.MaxReportedErrors {
			examples = append(examples, msg)
		}
	}

	for _, item := range req.Readings {
		if err := validateValues(item); err != nil {
			record(fmt.Sprintf("invalid values for %s", item.TakenAt.Format(time.RFC3339)))
			continue
		}

		ok, checked := locationOK[item.LocationID]
		if !checked {
			exists, err := s.repo.LocationExists(ctx, item.LocationID)
			if err != nil {
				return nil, fmt.Errorf("check location: %w", err)
			}
			locationOK[item.LocationID] = exists
			ok = exists
		}
		if !ok {
			record(fmt.Sprintf("location %d does not exist", item.LocationID))
			continue
		}

		// The repo.Exists pre-check only sees committed rows; a repeat of an
		// accepted sibling has to be caught here or CopyFrom would fail the
		// whole batch on the unique constraint.
		key := batchKey{locationID: item.LocationID, takenAt: item.TakenAt.UnixNano()}
		if seen[key] {
			record(fmt.Sprintf("reading for %s repeats within the batch", item.TakenAt.Format(time.RFC3339)))
			continue
		}

		exists, err := s.repo.Exists(ctx, item.LocationID, item.TakenAt)
		if err != nil {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			record(fmt.Sprintf("reading for %s already exists", item.TakenAt.Format(time.RFC3339)))
			continue
		}

		seen[key] = true
		accepted = append(accepted, Reading{
			LocationID:     item.LocationID,
			TakenAt:        item.TakenAt,
			ConsumptionKWh: money.RoundConsumption(item.ConsumptionKWh),
			UnitPrice:      money.RoundPrice(item.UnitPrice),
		})
	}

	if len(accepted) > 0 {
		if err := s.repo.InsertBatch(ctx, accepted); err != nil {
			return nil, fmt.Errorf("insert batch: %w", err)
		}
		s.invalidate(ctx)
		s.recordIngested(len(accepted))
	}

	s.logger.Info("bulk create finished",
		slog.Int("success", len(accepted)), slog.Int("errors", errCount))

	return &BulkCreateResult{
		SuccessCount: len(accepted),
		ErrorCount:   errCount,
		Errors:       examples,
	}, nil
}

// ImportFile is the all-or-nothing file ingestion path: any record error
// rejects the whole file with nothing written.
func (s *Service) ImportFile(ctx context.Context, locationID int64, data []byte, replaceExisting bool) (*ImportResult, error) {
	exists, err := s.repo.LocationExists(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("check location: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("location %d: %w", locationID, billing.ErrNotFound)
	}

	text, err := decodeImportFile(data)
	if err != nil {
		return nil, err
	}

	records, rowErrors, rows, err := parseImportFile(text, s.cfg.Timezone)
	if err != nil {
		return nil, err
	}
	if rows > s.cfg.MaxBatch {
		return nil, fmt.Errorf("%d records exceed the cap of %d: %w",
			rows, s.cfg.MaxBatch, billing.ErrBatchTooLarge)
	}
	if len(rowErrors) > 0 {
		capped := rowErrors
		if len(capped) > s.cfg.MaxReportedErrors {
			capped = capped[:s.cfg.MaxReportedErrors]
		}
		return &ImportResult{
			Success:    false,
			Message:    "file rejected, fix the reported rows and retry",
			ErrorCount: len(rowErrors),
			Errors:     capped,
		}, nil
	}

	items := make([]Reading, len(records))
	for i, rec := range records {
		items[i] = Reading{
			LocationID:     locationID,
			TakenAt:        rec.timestamp,
			ConsumptionKWh: money.RoundConsumption(rec.consumption),
			UnitPrice:      money.RoundPrice(rec.price),
		}
	}

	imported, err := s.repo.ImportForLocation(ctx, locationID, items, replaceExisting)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.recordIngested(imported)

	s.logger.Info("import finished",
		slog.Int64("location_id", locationID),
		slog.Int("imported", imported),
		slog.Bool("replace_existing", replaceExisting))

	return &ImportResult{
		Success:  true,
		Message:  fmt.Sprintf("imported %d readings", imported),
		Imported: imported,
	}, nil
}

// Delete removes one reading unless an invoice line references it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	invoiced, err := s.repo.IsInvoiced(ctx, id)
	if err != nil {
		return fmt.Errorf("check invoice references: %w", err)
	}
	if invoiced {
		return fmt.Errorf("reading %d is referenced by an invoice: %w", id, billing.ErrIntegrityViolation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// DeleteAllForLocation wipes a location's readings. Refused while any of
// them is invoiced.
func (s *Service) DeleteAllForLocation(ctx context.Context, locationID int64) (int64, error) {
	exists, err := s.repo.LocationExists(ctx, locationID)
	if err != nil {
		return 0, fmt.Errorf("check location: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("location %d: %w", locationID, billing.ErrNotFound)
	}

	invoiced, err := s.repo.HasInvoicedForLocation(ctx, locationID)
	if err != nil {
		return 0, fmt.Errorf("check invoice references: %w", err)
	}
	if invoiced {
		return 0, fmt.Errorf("location %d has invoiced readings: %w", locationID, billing.ErrIntegrityViolation)
	}

	deleted, err := s.repo.DeleteAllForLocation(ctx, locationID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	s.logger.Info("deleted location readings",
		slog.Int64("location_id", locationID), slog.Int64("deleted", deleted))
	return deleted, nil
}

// batchKey identifies a (location, timestamp) pair within one bulk call.
type batchKey struct {
	locationID int64
	takenAt    int64
}

func validateValues(req CreateReadingRequest) error {
	if req.TakenAt.IsZero() {
		return fmt.Errorf("missing timestamp: %w", billing.ErrValidation)
	}
	if req.ConsumptionKWh.IsNegative() {
		return fmt.Errorf("consumption cannot be negative: %w", billing.ErrValidation)
	}
	if !req.UnitPrice.IsPositive() {
		return fmt.Errorf("price must be positive: %w", billing.ErrValidation)
	}
	return nil
}
