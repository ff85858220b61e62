package locations

import (
	"context"
	"fmt"

	"github.com/gridbill/gridbill/internal/billing"
)

// Service handles location business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateLocationRequest) (*Location, error) {
	location := Location{
		CustomerID:  req.CustomerID,
		Name:        req.Name,
		Address:     req.Address,
		MeterNumber: req.MeterNumber,
	}

	id, err := s.repo.Create(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Location, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListLocationsRequest) ([]Location, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateLocationRequest) (*Location, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.MeterNumber != nil {
		updates["meter_number"] = *req.MeterNumber
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update location: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a location. Refused while readings or invoices still
// reference it; the dependent data has to go first.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	readings, err := s.repo.CountReadings(ctx, id)
	if err != nil {
		return fmt.Errorf("count readings: %w", err)
	}
	if readings > 0 {
		return fmt.Errorf("location %d has %d readings: %w", id, readings, billing.ErrIntegrityViolation)
	}
	invoices, err := s.repo.CountInvoices(ctx, id)
	if err != nil {
		return fmt.Errorf("count invoices: %w", err)
	}
	if invoices > 0 {
		return fmt.Errorf("location %d has %d invoices: %w", id, invoices, billing.ErrIntegrityViolation)
	}
	return s.repo.Delete(ctx, id)
}
