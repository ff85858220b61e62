package readings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/platform/db"
)

// Repository provides persistence for consumption readings.
type Repository interface {
	Get(ctx context.Context, id int64) (*Reading, error)
	List(ctx context.Context, req ListReadingsRequest) ([]Reading, int, error)
	Create(ctx context.Context, reading Reading) (int64, error)
	Exists(ctx context.Context, locationID int64, takenAt time.Time) (bool, error)
	InsertBatch(ctx context.Context, items []Reading) error
	ImportForLocation(ctx context.Context, locationID int64, items []Reading, replaceExisting bool) (int, error)
	Delete(ctx context.Context, id int64) error
	DeleteAllForLocation(ctx context.Context, locationID int64) (int64, error)
	IsInvoiced(ctx context.Context, id int64) (bool, error)
	HasInvoicedForLocation(ctx context.Context, locationID int64) (bool, error)
	LocationExists(ctx context.Context, locationID int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Reading, error) {
	query := `
		SELECT id, location_id, taken_at, consumption_kwh, unit_price, created_at
		FROM readings
		WHERE id = $1`

	var reading Reading
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&reading.ID, &reading.LocationID, &reading.TakenAt,
		&reading.ConsumptionKWh, &reading.UnitPrice, &reading.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reading %d: %w", id, billing.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *repository) List(ctx context.Context, req ListReadingsRequest) ([]Reading, int, error) {
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

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM readings %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, location_id, taken_at, consumption_kwh, unit_price, created_at
		FROM readings
		%s
		ORDER BY taken_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Reading
	for rows.Next() {
		var reading Reading
		if err := rows.Scan(
			&reading.ID, &reading.LocationID, &reading.TakenAt,
			&reading.ConsumptionKWh, &reading.UnitPrice, &reading.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, reading)
	}

	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, reading Reading) (int64, error) {
	query := `
		INSERT INTO readings (location_id, taken_at, consumption_kwh, unit_price, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		reading.LocationID, reading.TakenAt, reading.ConsumptionKWh, reading.UnitPrice,
	).Scan(&id)
	if db.IsUniqueViolation(err, "readings_location_taken_at_key") {
		return 0, fmt.Errorf("location %d at %s: %w",
			reading.LocationID, reading.TakenAt.Format("2006-01-02 15:04:05"), billing.ErrDuplicateReading)
	}
	if db.IsForeignKeyViolation(err) {
		return 0, fmt.Errorf("location %d: %w", reading.LocationID, billing.ErrNotFound)
	}
	return id, err
}

func (r *repository) Exists(ctx context.Context, locationID int64, takenAt time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM readings WHERE location_id = $1 AND taken_at = $2)",
		locationID, takenAt,
	).Scan(&exists)
	return exists, err
}

// InsertBatch writes the accepted subset of a tolerant bulk create in one
// transaction.
func (r *repository) InsertBatch(ctx context.Context, items []Reading) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"readings"},
			[]string{"location_id", "taken_at", "consumption_kwh", "unit_price"},
			pgx.CopyFromSlice(len(items), func(i int) ([]interface{}, error) {
				return []interface{}{
					items[i].LocationID, items[i].TakenAt,
					items[i].ConsumptionKWh, items[i].UnitPrice,
				}, nil
			}),
		)
		return err
	})
}

// ImportForLocation is the all-or-nothing file import path: an optional wipe
// of the location's readings and the bulk insert share one transaction.
func (r *repository) ImportForLocation(ctx context.Context, locationID int64, items []Reading, replaceExisting bool) (int, error) {
	var imported int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if replaceExisting {
			if _, err := tx.Exec(ctx, "DELETE FROM readings WHERE location_id = $1", locationID); err != nil {
				return fmt.Errorf("delete existing readings: %w", err)
			}
		}

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"readings"},
			[]string{"location_id", "taken_at", "consumption_kwh", "unit_price"},
			pgx.CopyFromSlice(len(items), func(i int) ([]interface{}, error) {
				return []interface{}{
					locationID, items[i].TakenAt,
					items[i].ConsumptionKWh, items[i].UnitPrice,
				}, nil
			}),
		)
		if db.IsUniqueViolation(err, "readings_location_taken_at_key") {
			return fmt.Errorf("location %d: %w", locationID, billing.ErrDuplicateReading)
		}
		if err != nil {
			return fmt.Errorf("bulk insert readings: %w", err)
		}
		imported = n
		return nil
	})
	return int(imported), err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM readings WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reading %d: %w", id, billing.ErrNotFound)
	}
	return nil
}

func (r *repository) DeleteAllForLocation(ctx context.Context, locationID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM readings WHERE location_id = $1", locationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) IsInvoiced(ctx context.Context, id int64) (bool, error) {
	var invoiced bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM invoice_line_items WHERE reading_id = $1)", id,
	).Scan(&invoiced)
	return invoiced, err
}

func (r *repository) HasInvoicedForLocation(ctx context.Context, locationID int64) (bool, error) {
	var invoiced bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM invoice_line_items li
			JOIN readings rd ON rd.id = li.reading_id
			WHERE rd.location_id = $1
		)`, locationID,
	).Scan(&invoiced)
	return invoiced, err
}

func (r *repository) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)", locationID,
	).Scan(&exists)
	return exists, err
}
