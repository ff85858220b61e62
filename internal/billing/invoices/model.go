package invoices

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the invoice lifecycle state. Transitions run forward only:
// CREATED -> DOCUMENT_GENERATED -> SENT, with SENT terminal.
type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusDocumentGenerated Status = "DOCUMENT_GENERATED"
	StatusSent              Status = "SENT"
)

// ErrInvalidTransition indicates a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invoice status transition invalid")

// ValidateTransition checks a status change against the lifecycle. Repeating
// the current status is a no-op.
func ValidateTransition(current, target Status) error {
	if current == target {
		return nil
	}
	switch current {
	case StatusCreated:
		if target == StatusDocumentGenerated {
			return nil
		}
	case StatusDocumentGenerated:
		if target == StatusSent {
			return nil
		}
	case StatusSent:
		// terminal
	}
	return fmt.Errorf("%s -> %s: %w", current, target, ErrInvalidTransition)
}

// Invoice is an itemized statement over a location's readings in a period.
type Invoice struct {
	ID          int64           `json:"id"`
	LocationID  int64           `json:"location_id"`
	Number      string          `json:"number"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	IssuedAt    time.Time       `json:"issued_at"`
	DocumentRef *string         `json:"document_ref,omitempty"`
}

// LineItem snapshots one reading at invoicing time. Later edits to the
// reading never change an issued invoice.
type LineItem struct {
	ID             int64           `json:"id"`
	InvoiceID      int64           `json:"invoice_id"`
	ReadingID      int64           `json:"reading_id"`
	TakenAt        time.Time       `json:"taken_at"`
	ConsumptionKWh decimal.Decimal `json:"consumption_kwh"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Amount         decimal.Decimal `json:"amount"`
}

// invoiceNumber formats the year-scoped sequence, e.g. "2024-000042".
func invoiceNumber(year, seq int) string {
	return fmt.Sprintf("%d-%06d", year, seq)
}
