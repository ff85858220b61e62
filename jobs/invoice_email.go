package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/billing/invoices"
	"github.com/gridbill/gridbill/internal/mailer"
)

// Sender delivers a single e-mail message.
type Sender interface {
	Send(msg mailer.Message) error
}

// EmailProcessor sends generated invoice documents by e-mail.
type EmailProcessor struct {
	logger    *slog.Logger
	invoices  InvoiceStore
	locations LocationStore
	customers CustomerStore
	sender    Sender
}

// NewEmailProcessor constructs the invoice e-mail processor. The location and
// customer stores resolve the fallback recipient.
func NewEmailProcessor(logger *slog.Logger, inv InvoiceStore, loc LocationStore, cust CustomerStore, sender Sender) *EmailProcessor {
	return &EmailProcessor{logger: logger, invoices: inv, locations: loc, customers: cust, sender: sender}
}

// Handle processes one TaskInvoiceEmail task. A payload without a recipient
// falls back to the e-mail of the customer owning the invoiced location. The
// invoice is marked SENT only after delivery succeeds; a send failure leaves
// the status untouched.
func (p *EmailProcessor) Handle(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	detail, err := p.invoices.Get(ctx, payload.InvoiceID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			p.logger.Warn("email job for missing invoice", slog.Int64("invoice_id", payload.InvoiceID))
			return asynq.SkipRetry
		}
		return fmt.Errorf("load invoice %d: %w", payload.InvoiceID, err)
	}
	if detail.Status == invoices.StatusSent {
		p.logger.Info("invoice already sent", slog.String("number", detail.Number))
		return nil
	}
	if detail.DocumentRef == nil {
		// Document generation may still be in flight; retry later.
		return fmt.Errorf("invoice %s has no document yet", detail.Number)
	}

	recipient := payload.Recipient
	if recipient == "" {
		recipient, err = p.customerEmail(ctx, detail.LocationID)
		if err != nil {
			return fmt.Errorf("resolve recipient for invoice %s: %w", detail.Number, err)
		}
	}
	if recipient == "" {
		p.logger.Error("no recipient address for invoice", slog.String("number", detail.Number))
		return asynq.SkipRetry
	}

	subject := payload.Subject
	if subject == "" {
		subject = fmt.Sprintf("Invoice %s", detail.Number)
	}
	body := payload.Message
	if body == "" {
		body = emailBody(detail)
	}

	msg := mailer.Message{
		To:             recipient,
		Subject:        subject,
		Body:           body,
		AttachmentPath: *detail.DocumentRef,
	}
	if err := p.sender.Send(msg); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			p.logger.Error("mailer not configured", slog.String("number", detail.Number))
			return asynq.SkipRetry
		}
		return fmt.Errorf("send invoice %s to %s: %w", detail.Number, recipient, err)
	}

	if err := p.invoices.MarkSent(ctx, detail.ID); err != nil {
		if errors.Is(err, invoices.ErrInvalidTransition) {
			return asynq.SkipRetry
		}
		return fmt.Errorf("mark invoice %s sent: %w", detail.Number, err)
	}

	p.logger.Info("invoice emailed",
		slog.String("number", detail.Number),
		slog.String("recipient", recipient))
	return nil
}

func (p *EmailProcessor) customerEmail(ctx context.Context, locationID int64) (string, error) {
	location, err := p.locations.Get(ctx, locationID)
	if err != nil {
		return "", fmt.Errorf("load location %d: %w", locationID, err)
	}
	customer, err := p.customers.Get(ctx, location.CustomerID)
	if err != nil {
		return "", fmt.Errorf("load customer %d: %w", location.CustomerID, err)
	}
	if customer.Email == nil {
		return "", nil
	}
	return *customer.Email, nil
}

func emailBody(detail *invoices.InvoiceDetail) string {
	return fmt.Sprintf(
		"Dear customer,\n\nplease find attached invoice %s for the period %s to %s.\nAmount due: %s EUR.\n\nKind regards",
		detail.Number,
		detail.PeriodStart.Format("02.01.2006"),
		detail.PeriodEnd.Format("02.01.2006"),
		detail.TotalAmount.StringFixed(2),
	)
}
