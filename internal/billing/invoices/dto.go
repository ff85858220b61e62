package invoices

import "time"

type CreateInvoiceRequest struct {
	LocationID  int64     `json:"location_id" validate:"required,gt=0"`
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
}

type ListInvoicesRequest struct {
	LocationID *int64  `json:"location_id,omitempty"`
	Status     *Status `json:"status,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int     `json:"offset" validate:"gte=0"`
}

// SendEmailRequest carries optional delivery overrides. An absent recipient
// falls back to the e-mail of the customer owning the invoiced location.
type SendEmailRequest struct {
	Recipient *string `json:"recipient,omitempty" validate:"omitempty,email"`
	Subject   *string `json:"subject,omitempty" validate:"omitempty,max=200"`
	Message   *string `json:"message,omitempty"`
}

// InvoiceDetail carries the header together with its line items.
type InvoiceDetail struct {
	Invoice
	LineItems []LineItem `json:"line_items"`
}
