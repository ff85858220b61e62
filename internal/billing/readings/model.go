package readings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reading is one metered consumption interval at a location, priced at the
// dynamic tariff in force during that interval. At most one reading exists
// per location and timestamp.
type Reading struct {
	ID             int64           `json:"id"`
	LocationID     int64           `json:"location_id"`
	TakenAt        time.Time       `json:"taken_at"`
	ConsumptionKWh decimal.Decimal `json:"consumption_kwh"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	CreatedAt      time.Time       `json:"created_at"`
}
