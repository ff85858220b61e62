package invoices

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/billing/readings"
)

type memoryInvoiceRepo struct {
	invoices  map[int64]*Invoice
	lines     map[int64][]LineItem
	readings  []readings.Reading
	locations map[int64]bool
	nextID    int64

	// conflictsLeft makes the next N Create calls lose the numbering race.
	conflictsLeft int
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		invoices:  make(map[int64]*Invoice),
		lines:     make(map[int64][]LineItem),
		locations: make(map[int64]bool),
	}
}

func (r *memoryInvoiceRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	copied := *invoice
	return &copied, nil
}

func (r *memoryInvoiceRepo) GetWithLines(ctx context.Context, id int64) (*Invoice, []LineItem, error) {
	invoice, err := r.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return invoice, r.lines[id], nil
}

func (r *memoryInvoiceRepo) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var out []Invoice
	for _, invoice := range r.invoices {
		if req.LocationID != nil && invoice.LocationID != *req.LocationID {
			continue
		}
		if req.Status != nil && invoice.Status != *req.Status {
			continue
		}
		out = append(out, *invoice)
	}
	return out, len(out), nil
}

func (r *memoryInvoiceRepo) Create(ctx context.Context, invoice Invoice, lines []LineItem) (int64, error) {
	year := invoice.IssuedAt.Year()
	count := 0
	prefix := fmt.Sprintf("%d-", year)
	for _, existing := range r.invoices {
		if strings.HasPrefix(existing.Number, prefix) {
			count++
		}
	}
	number := invoiceNumber(year, count+1)

	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return 0, fmt.Errorf("number %s: %w", number, billing.ErrNumberConflict)
	}
	for _, existing := range r.invoices {
		if existing.Number == number {
			return 0, fmt.Errorf("number %s: %w", number, billing.ErrNumberConflict)
		}
	}

	r.nextID++
	invoice.ID = r.nextID
	invoice.Number = number
	r.invoices[invoice.ID] = &invoice

	stored := make([]LineItem, len(lines))
	for i, line := range lines {
		r.nextID++
		line.ID = r.nextID
		line.InvoiceID = invoice.ID
		stored[i] = line
	}
	r.lines[invoice.ID] = stored
	return invoice.ID, nil
}

func (r *memoryInvoiceRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	invoice, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	invoice.Status = status
	return nil
}

func (r *memoryInvoiceRepo) SetDocumentRef(ctx context.Context, id int64, ref string, status Status) error {
	invoice, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	invoice.DocumentRef = &ref
	invoice.Status = status
	return nil
}

func (r *memoryInvoiceRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.invoices[id]; !ok {
		return fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	delete(r.invoices, id)
	delete(r.lines, id)
	return nil
}

func (r *memoryInvoiceRepo) ReadingsForPeriod(ctx context.Context, locationID int64, start, end time.Time) ([]readings.Reading, error) {
	var out []readings.Reading
	for _, reading := range r.readings {
		if reading.LocationID != locationID {
			continue
		}
		if reading.TakenAt.Before(start) || reading.TakenAt.After(end) {
			continue
		}
		out = append(out, reading)
	}
	return out, nil
}

func (r *memoryInvoiceRepo) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	return r.locations[locationID], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func periodRequest() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		LocationID:  1,
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
	}
}

func seededRepo() *memoryInvoiceRepo {
	repo := newMemoryInvoiceRepo()
	repo.locations[1] = true
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	repo.readings = []readings.Reading{
		testReading(1, base, "10.0", "0.15"),
		testReading(2, base.Add(time.Hour), "5.0", "0.20"),
	}
	return repo
}

func TestCreateInvoice(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	svc := NewService(testLogger(), repo)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }

	detail, err := svc.Create(ctx, periodRequest())
	require.NoError(t, err)
	require.Equal(t, "2024-000001", detail.Number)
	require.Equal(t, StatusCreated, detail.Status)
	require.Equal(t, "2.50", detail.TotalAmount.StringFixed(2))
	require.Len(t, detail.LineItems, 2)
}

func TestCreateInvoiceNumberingMonotonic(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	svc := NewService(testLogger(), repo)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }

	for i := 1; i <= 3; i++ {
		detail, err := svc.Create(ctx, periodRequest())
		require.NoError(t, err)
		require.Equal(t, invoiceNumber(2024, i), detail.Number)
	}
}

func TestCreateInvoiceNumberConflictRetried(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	repo.conflictsLeft = 2
	svc := NewService(testLogger(), repo)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }

	detail, err := svc.Create(ctx, periodRequest())
	require.NoError(t, err, "a lost race must be retried with a fresh sequence")
	require.Equal(t, "2024-000001", detail.Number)
}

func TestCreateInvoiceNumberConflictSurfaced(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	repo.conflictsLeft = numberRetries + 1
	svc := NewService(testLogger(), repo)

	_, err := svc.Create(ctx, periodRequest())
	require.ErrorIs(t, err, billing.ErrNumberConflict)
	require.Empty(t, repo.invoices, "a failed creation leaves nothing behind")
}

func TestCreateInvoiceEmptyPeriod(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryInvoiceRepo()
	repo.locations[1] = true
	svc := NewService(testLogger(), repo)

	_, err := svc.Create(ctx, periodRequest())
	require.ErrorIs(t, err, billing.ErrEmptyPeriod)
	require.Empty(t, repo.invoices)
	require.Empty(t, repo.lines)
}

func TestCreateInvoiceUnknownLocation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), newMemoryInvoiceRepo())

	_, err := svc.Create(ctx, periodRequest())
	require.ErrorIs(t, err, billing.ErrNotFound)
}

func TestCreateInvoiceInvertedPeriod(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), seededRepo())

	req := periodRequest()
	req.PeriodStart, req.PeriodEnd = req.PeriodEnd, req.PeriodStart
	_, err := svc.Create(ctx, req)
	require.ErrorIs(t, err, billing.ErrValidation)
}

func TestStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	svc := NewService(testLogger(), repo)

	detail, err := svc.Create(ctx, periodRequest())
	require.NoError(t, err)

	// SENT straight from CREATED must be refused.
	require.ErrorIs(t, svc.MarkSent(ctx, detail.ID), ErrInvalidTransition)

	require.NoError(t, svc.AttachDocument(ctx, detail.ID, "/invoices/a.pdf"))
	after, err := svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDocumentGenerated, after.Status)
	require.NotNil(t, after.DocumentRef)

	require.NoError(t, svc.MarkSent(ctx, detail.ID))

	// SENT is terminal.
	require.ErrorIs(t, svc.AttachDocument(ctx, detail.ID, "/invoices/b.pdf"), ErrInvalidTransition)
}

func TestDeleteSentInvoiceRefused(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	svc := NewService(testLogger(), repo)

	detail, err := svc.Create(ctx, periodRequest())
	require.NoError(t, err)
	require.NoError(t, svc.AttachDocument(ctx, detail.ID, "/invoices/a.pdf"))
	require.NoError(t, svc.MarkSent(ctx, detail.ID))

	err = svc.Delete(ctx, detail.ID)
	require.ErrorIs(t, err, billing.ErrIntegrityViolation)
	require.Contains(t, repo.invoices, detail.ID)
}

func TestDeleteInvoiceRemovesLines(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	svc := NewService(testLogger(), repo)

	detail, err := svc.Create(ctx, periodRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, detail.ID))
	require.Empty(t, repo.invoices)
	require.Empty(t, repo.lines)
}
