package locations

type CreateLocationRequest struct {
	CustomerID  int64   `json:"customer_id" validate:"required,gt=0"`
	Name        string  `json:"name" validate:"required,max=200"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
	MeterNumber *string `json:"meter_number,omitempty" validate:"omitempty,max=100"`
}

type UpdateLocationRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
	MeterNumber *string `json:"meter_number,omitempty" validate:"omitempty,max=100"`
}

type ListLocationsRequest struct {
	CustomerID *int64 `json:"customer_id,omitempty"`
	Limit      int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int    `json:"offset" validate:"gte=0"`
}
