package locations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridbill/gridbill/internal/billing"
)

type memoryLocationRepo struct {
	locations map[int64]*Location
	readings  map[int64]int
	invoices  map[int64]int
	nextID    int64
}

func newMemoryLocationRepo() *memoryLocationRepo {
	return &memoryLocationRepo{
		locations: make(map[int64]*Location),
		readings:  make(map[int64]int),
		invoices:  make(map[int64]int),
	}
}

func (r *memoryLocationRepo) Get(ctx context.Context, id int64) (*Location, error) {
	loc, ok := r.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %d: %w", id, billing.ErrNotFound)
	}
	copied := *loc
	return &copied, nil
}

func (r *memoryLocationRepo) List(ctx context.Context, req ListLocationsRequest) ([]Location, int, error) {
	var out []Location
	for _, loc := range r.locations {
		if req.CustomerID != nil && loc.CustomerID != *req.CustomerID {
			continue
		}
		out = append(out, *loc)
	}
	return out, len(out), nil
}

func (r *memoryLocationRepo) Create(ctx context.Context, location Location) (int64, error) {
	if location.MeterNumber != nil {
		for _, existing := range r.locations {
			if existing.MeterNumber != nil && *existing.MeterNumber == *location.MeterNumber {
				return 0, fmt.Errorf("meter %q: %w", *location.MeterNumber, billing.ErrMeterNumberConflict)
			}
		}
	}
	r.nextID++
	location.ID = r.nextID
	location.CreatedAt = time.Now()
	location.UpdatedAt = location.CreatedAt
	r.locations[location.ID] = &location
	return location.ID, nil
}

func (r *memoryLocationRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	loc, ok := r.locations[id]
	if !ok {
		return fmt.Errorf("location %d: %w", id, billing.ErrNotFound)
	}
	if v, ok := updates["name"]; ok {
		loc.Name = v.(string)
	}
	if v, ok := updates["meter_number"]; ok {
		val := v.(string)
		loc.MeterNumber = &val
	}
	return nil
}

func (r *memoryLocationRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.locations[id]; !ok {
		return fmt.Errorf("location %d: %w", id, billing.ErrNotFound)
	}
	delete(r.locations, id)
	return nil
}

func (r *memoryLocationRepo) CountReadings(ctx context.Context, id int64) (int, error) {
	return r.readings[id], nil
}

func (r *memoryLocationRepo) CountInvoices(ctx context.Context, id int64) (int, error) {
	return r.invoices[id], nil
}

func TestCreateLocation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryLocationRepo())

	meter := "SI-000123"
	loc, err := svc.Create(ctx, CreateLocationRequest{
		CustomerID:  1,
		Name:        "Main house",
		MeterNumber: &meter,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), loc.CustomerID)
	require.NotNil(t, loc.MeterNumber)
	require.Equal(t, meter, *loc.MeterNumber)
}

func TestCreateLocationMeterConflict(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryLocationRepo())

	meter := "SI-000123"
	_, err := svc.Create(ctx, CreateLocationRequest{CustomerID: 1, Name: "A", MeterNumber: &meter})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateLocationRequest{CustomerID: 2, Name: "B", MeterNumber: &meter})
	require.ErrorIs(t, err, billing.ErrMeterNumberConflict)
}

func TestDeleteLocationWithReadingsRefused(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLocationRepo()
	svc := NewService(repo)

	loc, err := svc.Create(ctx, CreateLocationRequest{CustomerID: 1, Name: "A"})
	require.NoError(t, err)
	repo.readings[loc.ID] = 12

	err = svc.Delete(ctx, loc.ID)
	require.ErrorIs(t, err, billing.ErrIntegrityViolation)
}

func TestDeleteLocationWithInvoicesRefused(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLocationRepo()
	svc := NewService(repo)

	loc, err := svc.Create(ctx, CreateLocationRequest{CustomerID: 1, Name: "A"})
	require.NoError(t, err)
	repo.invoices[loc.ID] = 1

	err = svc.Delete(ctx, loc.ID)
	require.ErrorIs(t, err, billing.ErrIntegrityViolation)
}

func TestDeleteEmptyLocation(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLocationRepo()
	svc := NewService(repo)

	loc, err := svc.Create(ctx, CreateLocationRequest{CustomerID: 1, Name: "A"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, loc.ID))
	require.Empty(t, repo.locations)
}
