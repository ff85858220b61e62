// Package jobs defines the background task types and their Asynq processors.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceDocument renders the PDF document for an invoice.
	TaskInvoiceDocument = "invoice:document"
	// TaskInvoiceEmail delivers a generated invoice document by e-mail.
	TaskInvoiceEmail = "invoice:email"
	// TaskRetentionSweep removes billing data past the retention window.
	TaskRetentionSweep = "retention:sweep"
)

// InvoiceDocumentPayload identifies the invoice to render.
type InvoiceDocumentPayload struct {
	InvoiceID int64 `json:"invoice_id"`
}

// InvoiceEmailPayload identifies the invoice and carries the optional
// delivery overrides. An empty recipient resolves to the owning customer's
// address at processing time.
type InvoiceEmailPayload struct {
	InvoiceID int64  `json:"invoice_id"`
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message,omitempty"`
}

// RetentionSweepPayload carries the sweep parameters.
type RetentionSweepPayload struct {
	MaxAgeDays int  `json:"max_age_days"`
	DryRun     bool `json:"dry_run"`
}

// NewInvoiceDocumentTask constructs an Asynq task for document rendering.
func NewInvoiceDocumentTask(invoiceID int64) (*asynq.Task, error) {
	body, err := json.Marshal(InvoiceDocumentPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceDocument, body, asynq.Queue(QueueDefault)), nil
}

// NewInvoiceEmailTask constructs an Asynq task for invoice delivery.
func NewInvoiceEmailTask(payload InvoiceEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceEmail, body, asynq.Queue(QueueDefault)), nil
}

// NewRetentionSweepTask constructs an Asynq task for a retention sweep.
func NewRetentionSweepTask(maxAgeDays int, dryRun bool) (*asynq.Task, error) {
	body, err := json.Marshal(RetentionSweepPayload{MaxAgeDays: maxAgeDays, DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetentionSweep, body, asynq.Queue(QueueDefault)), nil
}
