package readings

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateReadingRequest struct {
	LocationID     int64           `json:"location_id" validate:"required,gt=0"`
	TakenAt        time.Time       `json:"taken_at" validate:"required"`
	ConsumptionKWh decimal.Decimal `json:"consumption_kwh"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

type BulkCreateRequest struct {
	Readings []CreateReadingRequest `json:"readings" validate:"required,min=1,dive"`
}

// BulkCreateResult reports a tolerant bulk insert: per-record failures never
// abort siblings. Errors holds at most the configured cap of examples while
// ErrorCount is the true total.
type BulkCreateResult struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors"`
}

// ImportResult reports a file import. The file path is all-or-nothing, so
// Imported is either the full record count or zero.
type ImportResult struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Imported   int      `json:"imported_count"`
	ErrorCount int      `json:"error_count"`
	Errors     []string `json:"errors"`
}

type ListReadingsRequest struct {
	LocationID *int64     `json:"location_id,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Limit      int        `json:"limit" validate:"gte=0,lte=10000"`
	Offset     int        `json:"offset" validate:"gte=0"`
}
