package stats

import (
	"context"
	"fmt"
	"strconv"
)

// Service computes cached period summaries.
type Service struct {
	source ReadingSource
	cache  *Cache
}

// NewService wires a ReadingSource with a Cache helper.
func NewService(source ReadingSource, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// Summary aggregates the readings matched by req. Results are cached under
// the current cache version until Invalidate bumps it.
func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, cacheKeyParts(req)...)
	if err != nil {
		return Summary{}, fmt.Errorf("stats: build cache key: %w", err)
	}

	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		items, err := s.source.ListForSummary(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("stats: load readings: %w", err)
		}
		return Summarize(items), nil
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Invalidate drops every cached summary. Reading mutations call this so a
// summary never outlives the data it described.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func cacheKeyParts(req SummaryRequest) []string {
	parts := []string{"stats", "summary"}
	if req.LocationID != nil {
		parts = append(parts, "loc", strconv.FormatInt(*req.LocationID, 10))
	}
	if req.From != nil {
		parts = append(parts, "from", req.From.Format("2006-01-02"))
	}
	if req.To != nil {
		parts = append(parts, "to", req.To.Format("2006-01-02"))
	}
	return parts
}
