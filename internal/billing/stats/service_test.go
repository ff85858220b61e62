package stats

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gridbill/gridbill/internal/billing/readings"
)

type mockSource struct {
	items []readings.Reading
	calls int
}

func (m *mockSource) ListForSummary(ctx context.Context, req SummaryRequest) ([]readings.Reading, error) {
	m.calls++
	return m.items, nil
}

func newTestService(t *testing.T, source ReadingSource) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(source, NewCache(client, time.Minute))
}

func reading(takenAt time.Time, consumption, price string) readings.Reading {
	return readings.Reading{
		TakenAt:        takenAt,
		ConsumptionKWh: decimal.RequireFromString(consumption),
		UnitPrice:      decimal.RequireFromString(price),
	}
}

func TestSummarize(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	summary := Summarize([]readings.Reading{
		reading(base, "10.0", "0.15"),
		reading(base.Add(time.Hour), "5.0", "0.20"),
	})

	require.Equal(t, 2, summary.Count)
	require.Equal(t, "15.0000", summary.TotalConsumptionKWh.StringFixed(4))
	require.Equal(t, "2.50", summary.TotalCost.StringFixed(2))
	require.Equal(t, "0.17500", summary.AveragePrice.StringFixed(5))
	require.Equal(t, "0.15000", summary.MinPrice.StringFixed(5))
	require.Equal(t, "0.20000", summary.MaxPrice.StringFixed(5))
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)

	require.Zero(t, summary.Count)
	require.True(t, summary.TotalConsumptionKWh.IsZero())
	require.True(t, summary.TotalCost.IsZero())
	require.True(t, summary.AveragePrice.IsZero())
	require.True(t, summary.MinPrice.IsZero())
	require.True(t, summary.MaxPrice.IsZero())
}

func TestSummarizeSingleReading(t *testing.T) {
	summary := Summarize([]readings.Reading{
		reading(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), "0.9", "0.05"),
	})

	require.Equal(t, 1, summary.Count)
	// 0.9 * 0.05 = 0.045 rounds half-to-even down to 0.04.
	require.Equal(t, "0.04", summary.TotalCost.StringFixed(2))
	require.True(t, summary.MinPrice.Equal(summary.MaxPrice))
}

func TestSummaryCaches(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	source := &mockSource{items: []readings.Reading{reading(base, "10.0", "0.15")}}
	svc := newTestService(t, source)

	first, err := svc.Summary(ctx, SummaryRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, source.calls)

	second, err := svc.Summary(ctx, SummaryRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, source.calls, "second call must hit the cache")
	require.Equal(t, first.Count, second.Count)
	require.True(t, first.TotalCost.Equal(second.TotalCost))
}

func TestInvalidateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	source := &mockSource{items: []readings.Reading{reading(base, "10.0", "0.15")}}
	svc := newTestService(t, source)

	_, err := svc.Summary(ctx, SummaryRequest{})
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))

	source.items = append(source.items, reading(base.Add(time.Hour), "5.0", "0.20"))
	summary, err := svc.Summary(ctx, SummaryRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, source.calls, "invalidation must force a reload")
	require.Equal(t, 2, summary.Count)
}

func TestSummaryKeyVariesByFilter(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	source := &mockSource{items: []readings.Reading{reading(base, "10.0", "0.15")}}
	svc := newTestService(t, source)

	_, err := svc.Summary(ctx, SummaryRequest{})
	require.NoError(t, err)

	loc := int64(7)
	_, err = svc.Summary(ctx, SummaryRequest{LocationID: &loc})
	require.NoError(t, err)
	require.Equal(t, 2, source.calls, "different filters must not share an entry")
}
