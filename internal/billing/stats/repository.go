package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridbill/gridbill/internal/billing/readings"
)

// SummaryRequest filters the readings feeding a Summary. Bounds are
// inclusive on both ends.
type SummaryRequest struct {
	LocationID *int64
	From       *time.Time
	To         *time.Time
}

// ReadingSource feeds the aggregator.
type ReadingSource interface {
	ListForSummary(ctx context.Context, req SummaryRequest) ([]readings.Reading, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed DashboardSource, which also
// satisfies ReadingSource for the summary endpoint.
func NewRepository(pool *pgxpool.Pool) DashboardSource {
	return &repository{pool: pool}
}

func (r *repository) ListForSummary(ctx context.Context, req SummaryRequest) ([]readings.Reading, error) {
	whereClause := ""
	var args []interface{}
	argPos := 1

	addCond := func(cond string, arg interface{}) {
		if whereClause == "" {
			whereClause = "WHERE " + fmt.Sprintf(cond, argPos)
		} else {
			whereClause += " AND " + fmt.Sprintf(cond, argPos)
		}
		args = append(args, arg)
		argPos++
	}

	if req.LocationID != nil {
		addCond("location_id = $%d", *req.LocationID)
	}
	if req.From != nil {
		addCond("taken_at >= $%d", *req.From)
	}
	if req.To != nil {
		addCond("taken_at <= $%d", *req.To)
	}

	query := fmt.Sprintf(`
		SELECT id, location_id, taken_at, consumption_kwh, unit_price, created_at
		FROM readings
		%s
		ORDER BY taken_at
	`, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.Reading
	for rows.Next() {
		var reading readings.Reading
		if err := rows.Scan(
			&reading.ID, &reading.LocationID, &reading.TakenAt,
			&reading.ConsumptionKWh, &reading.UnitPrice, &reading.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, reading)
	}
	return result, rows.Err()
}

func (r *repository) EntityCounts(ctx context.Context) (EntityCounts, error) {
	var counts EntityCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM locations),
			(SELECT COUNT(*) FROM readings),
			(SELECT COUNT(*) FROM invoices)
	`).Scan(&counts.Customers, &counts.Locations, &counts.Readings, &counts.Invoices)
	if err != nil {
		return EntityCounts{}, err
	}
	return counts, nil
}

func (r *repository) RecentInvoices(ctx context.Context, limit int) ([]RecentInvoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, location_id, number, total_amount, status, issued_at
		FROM invoices
		ORDER BY issued_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RecentInvoice
	for rows.Next() {
		var inv RecentInvoice
		if err := rows.Scan(
			&inv.ID, &inv.LocationID, &inv.Number,
			&inv.TotalAmount, &inv.Status, &inv.IssuedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (r *repository) ListLocations(ctx context.Context) ([]NamedLocation, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name FROM locations ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []NamedLocation
	for rows.Next() {
		var loc NamedLocation
		if err := rows.Scan(&loc.ID, &loc.Name); err != nil {
			return nil, err
		}
		result = append(result, loc)
	}
	return result, rows.Err()
}
