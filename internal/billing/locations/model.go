package locations

import "time"

// Location is a metered delivery point belonging to a customer. The meter
// number, when present, is unique across all locations.
type Location struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	Name        string    `json:"name"`
	Address     *string   `json:"address,omitempty"`
	MeterNumber *string   `json:"meter_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
