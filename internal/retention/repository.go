// Package retention removes aged billing data: uninvoiced readings and old
// invoices together with their line items.
package retention

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridbill/gridbill/internal/platform/db"
)

// Repository counts and deletes expired rows.
type Repository interface {
	CountOldReadings(ctx context.Context, cutoff time.Time) (int64, error)
	CountOldInvoices(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOld(ctx context.Context, cutoff time.Time) (readingsDeleted, invoicesDeleted int64, err error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Invoiced readings are kept regardless of age: the invoice lines snapshot
// them, but the source rows stay until their invoice goes.
const oldReadingsWhere = `
	created_at < $1
	AND NOT EXISTS (
		SELECT 1 FROM invoice_line_items li WHERE li.reading_id = readings.id
	)`

func (r *repository) CountOldReadings(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM readings WHERE"+oldReadingsWhere, cutoff,
	).Scan(&count)
	return count, err
}

func (r *repository) CountOldInvoices(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM invoices WHERE issued_at < $1", cutoff,
	).Scan(&count)
	return count, err
}

// DeleteOld runs the sweep in a single transaction. Invoices go first so
// their line items no longer pin readings, then the uninvoiced readings.
func (r *repository) DeleteOld(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	var readingsDeleted, invoicesDeleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM invoice_line_items
			WHERE invoice_id IN (SELECT id FROM invoices WHERE issued_at < $1)`, cutoff,
		); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, "DELETE FROM invoices WHERE issued_at < $1", cutoff)
		if err != nil {
			return err
		}
		invoicesDeleted = tag.RowsAffected()

		tag, err = tx.Exec(ctx, "DELETE FROM readings WHERE"+oldReadingsWhere, cutoff)
		if err != nil {
			return err
		}
		readingsDeleted = tag.RowsAffected()
		return nil
	})
	return readingsDeleted, invoicesDeleted, err
}
