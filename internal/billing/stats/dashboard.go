package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// EntityCounts totals the primary tables for the dashboard header.
type EntityCounts struct {
	Customers int64 `json:"customers"`
	Locations int64 `json:"locations"`
	Readings  int64 `json:"readings"`
	Invoices  int64 `json:"invoices"`
}

// RecentInvoice is the slim invoice view shown on the dashboard.
type RecentInvoice struct {
	ID          int64           `json:"id"`
	LocationID  int64           `json:"location_id"`
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	IssuedAt    time.Time       `json:"issued_at"`
}

// NamedLocation pairs a location id with its display name.
type NamedLocation struct {
	ID   int64
	Name string
}

// LocationActivity is one location's summary over the dashboard window.
type LocationActivity struct {
	LocationID int64     `json:"location_id"`
	Name       string    `json:"name"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Summary
}

// Dashboard is the admin overview: entity counts, the latest invoices and
// per-location activity over the previous calendar month.
type Dashboard struct {
	Counts          EntityCounts       `json:"counts"`
	RecentInvoices  []RecentInvoice    `json:"recent_invoices"`
	MonthlyActivity []LocationActivity `json:"monthly_activity"`
}

// DashboardSource extends ReadingSource with the lookups the dashboard needs.
type DashboardSource interface {
	ReadingSource
	EntityCounts(ctx context.Context) (EntityCounts, error)
	RecentInvoices(ctx context.Context, limit int) ([]RecentInvoice, error)
	ListLocations(ctx context.Context) ([]NamedLocation, error)
}

const recentInvoiceLimit = 5

// DashboardService assembles the cached admin dashboard.
type DashboardService struct {
	logger *slog.Logger
	source DashboardSource
	cache  *Cache
	now    func() time.Time
}

// NewDashboardService wires a DashboardSource with the shared stats cache.
func NewDashboardService(logger *slog.Logger, source DashboardSource, cache *Cache) *DashboardService {
	return &DashboardService{logger: logger, source: source, cache: cache, now: time.Now}
}

// Dashboard builds the overview. Per-location activity covers the previous
// calendar month; locations without readings in the window are omitted, and
// a location whose summary fails is logged and skipped rather than failing
// the whole page.
func (s *DashboardService) Dashboard(ctx context.Context) (Dashboard, error) {
	from, to := s.window()

	key, err := s.cache.BuildKey(ctx, "stats", "dashboard", from.Format("2006-01"))
	if err != nil {
		return Dashboard{}, fmt.Errorf("stats: build cache key: %w", err)
	}

	var dash Dashboard
	err = s.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (interface{}, error) {
		return s.build(ctx, from, to)
	})
	if err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func (s *DashboardService) build(ctx context.Context, from, to time.Time) (Dashboard, error) {
	counts, err := s.source.EntityCounts(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("stats: count entities: %w", err)
	}

	recent, err := s.source.RecentInvoices(ctx, recentInvoiceLimit)
	if err != nil {
		return Dashboard{}, fmt.Errorf("stats: list recent invoices: %w", err)
	}

	locations, err := s.source.ListLocations(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("stats: list locations: %w", err)
	}

	activity := make([]LocationActivity, 0, len(locations))
	for _, loc := range locations {
		locID := loc.ID
		items, err := s.source.ListForSummary(ctx, SummaryRequest{
			LocationID: &locID,
			From:       &from,
			To:         &to,
		})
		if err != nil {
			s.logger.Warn("dashboard location summary failed",
				slog.Int64("location_id", loc.ID), slog.Any("error", err))
			continue
		}
		summary := Summarize(items)
		if summary.Count == 0 {
			continue
		}
		activity = append(activity, LocationActivity{
			LocationID: loc.ID,
			Name:       loc.Name,
			From:       from,
			To:         to,
			Summary:    summary,
		})
	}

	return Dashboard{
		Counts:          counts,
		RecentInvoices:  recent,
		MonthlyActivity: activity,
	}, nil
}

// window bounds the previous calendar month: from its first day to the
// first day of the current month.
func (s *DashboardService) window() (from, to time.Time) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return monthStart.AddDate(0, -1, 0), monthStart
}
