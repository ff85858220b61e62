package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gridbill/gridbill/internal/billing/readings"
)

type mockDashboardSource struct {
	counts    EntityCounts
	recent    []RecentInvoice
	locations []NamedLocation
	// byLocation feeds ListForSummary per location id.
	byLocation map[int64][]readings.Reading
	failFor    map[int64]bool

	buildCalls int
}

func (m *mockDashboardSource) EntityCounts(ctx context.Context) (EntityCounts, error) {
	m.buildCalls++
	return m.counts, nil
}

func (m *mockDashboardSource) RecentInvoices(ctx context.Context, limit int) ([]RecentInvoice, error) {
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *mockDashboardSource) ListLocations(ctx context.Context) ([]NamedLocation, error) {
	return m.locations, nil
}

func (m *mockDashboardSource) ListForSummary(ctx context.Context, req SummaryRequest) ([]readings.Reading, error) {
	if req.LocationID == nil {
		return nil, errors.New("dashboard queries are per location")
	}
	if m.failFor[*req.LocationID] {
		return nil, errors.New("boom")
	}
	return m.byLocation[*req.LocationID], nil
}

func newDashboardService(t *testing.T, source DashboardSource) *DashboardService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewDashboardService(logger, source, NewCache(client, time.Minute))
	svc.now = func() time.Time { return time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func dashboardSource() *mockDashboardSource {
	inWindow := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return &mockDashboardSource{
		counts: EntityCounts{Customers: 3, Locations: 2, Readings: 40, Invoices: 6},
		recent: []RecentInvoice{
			{ID: 6, LocationID: 1, Number: "2024-000006", TotalAmount: decimal.RequireFromString("2.50"), Status: "SENT", IssuedAt: inWindow},
		},
		locations: []NamedLocation{
			{ID: 1, Name: "Main street 1"},
			{ID: 2, Name: "Warehouse"},
		},
		byLocation: map[int64][]readings.Reading{
			1: {
				reading(inWindow, "10.0", "0.15"),
				reading(inWindow.Add(time.Hour), "5.0", "0.20"),
			},
		},
	}
}

func TestDashboardAggregatesPreviousMonth(t *testing.T) {
	ctx := context.Background()
	source := dashboardSource()
	svc := newDashboardService(t, source)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	require.Equal(t, int64(3), dash.Counts.Customers)
	require.Equal(t, int64(6), dash.Counts.Invoices)
	require.Len(t, dash.RecentInvoices, 1)
	require.Equal(t, "2024-000006", dash.RecentInvoices[0].Number)

	// Location 2 has no readings in the window and must be omitted.
	require.Len(t, dash.MonthlyActivity, 1)
	activity := dash.MonthlyActivity[0]
	require.Equal(t, int64(1), activity.LocationID)
	require.Equal(t, "Main street 1", activity.Name)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), activity.From)
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), activity.To)
	require.Equal(t, 2, activity.Count)
	require.Equal(t, "2.50", activity.TotalCost.StringFixed(2))
}

func TestDashboardSkipsFailingLocation(t *testing.T) {
	ctx := context.Background()
	source := dashboardSource()
	source.failFor = map[int64]bool{1: true}
	svc := newDashboardService(t, source)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err, "one broken location must not fail the page")
	require.Empty(t, dash.MonthlyActivity)
	require.Equal(t, int64(3), dash.Counts.Customers)
}

func TestDashboardCaches(t *testing.T) {
	ctx := context.Background()
	source := dashboardSource()
	svc := newDashboardService(t, source)

	_, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, source.buildCalls)

	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, source.buildCalls, "second call must hit the cache")
}

func TestDashboardWindowAtYearBoundary(t *testing.T) {
	source := dashboardSource()
	svc := newDashboardService(t, source)
	svc.now = func() time.Time { return time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC) }

	from, to := svc.window()
	require.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), to)
}
