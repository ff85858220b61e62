package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/billing/readings"
	"github.com/gridbill/gridbill/internal/platform/db"
)

// Repository provides persistence for invoices and their line items.
type Repository interface {
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetWithLines(ctx context.Context, id int64) (*Invoice, []LineItem, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	Create(ctx context.Context, invoice Invoice, lines []LineItem) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	SetDocumentRef(ctx context.Context, id int64, ref string, status Status) error
	Delete(ctx context.Context, id int64) error
	ReadingsForPeriod(ctx context.Context, locationID int64, start, end time.Time) ([]readings.Reading, error)
	LocationExists(ctx context.Context, locationID int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, location_id, number, period_start, period_end,
	total_amount, status, issued_at, document_ref`

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	query := fmt.Sprintf("SELECT %s FROM invoices WHERE id = $1", invoiceColumns)
	invoice, err := scanInvoice(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *repository) GetWithLines(ctx context.Context, id int64) (*Invoice, []LineItem, error) {
	invoice, err := r.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, reading_id, taken_at, consumption_kwh, unit_price, amount
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY taken_at`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var lines []LineItem
	for rows.Next() {
		var line LineItem
		if err := rows.Scan(
			&line.ID, &line.InvoiceID, &line.ReadingID, &line.TakenAt,
			&line.ConsumptionKWh, &line.UnitPrice, &line.Amount,
		); err != nil {
			return nil, nil, err
		}
		lines = append(lines, line)
	}
	return invoice, lines, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
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
	if req.Status != nil {
		addCond("status = $%d", string(*req.Status))
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM invoices %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM invoices
		%s
		ORDER BY issued_at DESC
		LIMIT $%d OFFSET $%d
	`, invoiceColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *invoice)
	}
	return result, total, rows.Err()
}

// Create numbers and inserts the invoice with its line item snapshots in one
// failure-atomic transaction. The sequence is the count of invoices already
// carrying the year prefix plus one; a concurrent creator taking the same
// number trips the unique index and surfaces as ErrNumberConflict.
func (r *repository) Create(ctx context.Context, invoice Invoice, lines []LineItem) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		year := invoice.IssuedAt.Year()
		prefix := fmt.Sprintf("%d-%%", year)

		var count int
		if err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM invoices WHERE number LIKE $1", prefix,
		).Scan(&count); err != nil {
			return fmt.Errorf("count invoice numbers: %w", err)
		}
		number := invoiceNumber(year, count+1)

		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (location_id, number, period_start, period_end,
				total_amount, status, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			invoice.LocationID, number, invoice.PeriodStart, invoice.PeriodEnd,
			invoice.TotalAmount, string(invoice.Status), invoice.IssuedAt,
		).Scan(&id)
		if db.IsUniqueViolation(err, "invoices_number_key") {
			return fmt.Errorf("number %s: %w", number, billing.ErrNumberConflict)
		}
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"invoice_line_items"},
			[]string{"invoice_id", "reading_id", "taken_at", "consumption_kwh", "unit_price", "amount"},
			pgx.CopyFromSlice(len(lines), func(i int) ([]interface{}, error) {
				return []interface{}{
					id, lines[i].ReadingID, lines[i].TakenAt,
					lines[i].ConsumptionKWh, lines[i].UnitPrice, lines[i].Amount,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert line items: %w", err)
		}
		return nil
	})
	return id, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE invoices SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	return nil
}

func (r *repository) SetDocumentRef(ctx context.Context, id int64, ref string, status Status) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE invoices SET document_ref = $1, status = $2 WHERE id = $3",
		ref, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	return nil
}

// Delete removes the invoice together with its line items.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM invoice_line_items WHERE invoice_id = $1", id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
		}
		return nil
	})
}

// ReadingsForPeriod matches inclusively on both period endpoints.
func (r *repository) ReadingsForPeriod(ctx context.Context, locationID int64, start, end time.Time) ([]readings.Reading, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, location_id, taken_at, consumption_kwh, unit_price, created_at
		FROM readings
		WHERE location_id = $1 AND taken_at >= $2 AND taken_at <= $3
		ORDER BY taken_at`, locationID, start, end)
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

func (r *repository) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)", locationID,
	).Scan(&exists)
	return exists, err
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var invoice Invoice
	var status string
	var documentRef pgtype.Text
	if err := row.Scan(
		&invoice.ID, &invoice.LocationID, &invoice.Number,
		&invoice.PeriodStart, &invoice.PeriodEnd, &invoice.TotalAmount,
		&status, &invoice.IssuedAt, &documentRef,
	); err != nil {
		return nil, err
	}
	invoice.Status = Status(status)
	if documentRef.Valid {
		invoice.DocumentRef = &documentRef.String
	}
	return &invoice, nil
}
