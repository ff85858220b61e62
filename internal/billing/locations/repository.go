package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/platform/db"
)

// Repository provides persistence for metering locations.
type Repository interface {
	Get(ctx context.Context, id int64) (*Location, error)
	List(ctx context.Context, req ListLocationsRequest) ([]Location, int, error)
	Create(ctx context.Context, location Location) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	CountReadings(ctx context.Context, id int64) (int, error)
	CountInvoices(ctx context.Context, id int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Location, error) {
	query := `
		SELECT id, customer_id, name, address, meter_number, created_at, updated_at
		FROM locations
		WHERE id = $1`

	loc, err := scanLocation(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("location %d: %w", id, billing.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (r *repository) List(ctx context.Context, req ListLocationsRequest) ([]Location, int, error) {
	whereClause := ""
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		whereClause = fmt.Sprintf("WHERE customer_id = $%d", argPos)
		args = append(args, *req.CustomerID)
		argPos++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM locations %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, customer_id, name, address, meter_number, created_at, updated_at
		FROM locations
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *loc)
	}

	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, location Location) (int64, error) {
	query := `
		INSERT INTO locations (customer_id, name, address, meter_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		location.CustomerID,
		location.Name,
		textOrNull(location.Address),
		textOrNull(location.MeterNumber),
	).Scan(&id)
	if db.IsUniqueViolation(err, "locations_meter_number_key") {
		return 0, fmt.Errorf("meter %q: %w", deref(location.MeterNumber), billing.ErrMeterNumberConflict)
	}
	if db.IsForeignKeyViolation(err) {
		return 0, fmt.Errorf("customer %d: %w", location.CustomerID, billing.ErrNotFound)
	}
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE locations SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "address", "meter_number"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if db.IsUniqueViolation(err, "locations_meter_number_key") {
		return fmt.Errorf("location %d: %w", id, billing.ErrMeterNumberConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("location %d: %w", id, billing.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM locations WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("location %d: %w", id, billing.ErrNotFound)
	}
	return nil
}

func (r *repository) CountReadings(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM readings WHERE location_id = $1", id).Scan(&count)
	return count, err
}

func (r *repository) CountInvoices(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices WHERE location_id = $1", id).Scan(&count)
	return count, err
}

func scanLocation(row pgx.Row) (*Location, error) {
	var loc Location
	var address, meterNumber pgtype.Text
	if err := row.Scan(
		&loc.ID, &loc.CustomerID, &loc.Name, &address, &meterNumber,
		&loc.CreatedAt, &loc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if address.Valid {
		loc.Address = &address.String
	}
	if meterNumber.Valid {
		loc.MeterNumber = &meterNumber.String
	}
	return &loc, nil
}

func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
