package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/billing/customers"
	"github.com/gridbill/gridbill/internal/billing/invoices"
	"github.com/gridbill/gridbill/internal/billing/locations"
	"github.com/gridbill/gridbill/internal/billing/money"
	"github.com/gridbill/gridbill/report"
)

// InvoiceStore is the slice of the invoice service the processors need.
type InvoiceStore interface {
	Get(ctx context.Context, id int64) (*invoices.InvoiceDetail, error)
	AttachDocument(ctx context.Context, id int64, ref string) error
	MarkSent(ctx context.Context, id int64) error
}

// LocationStore resolves the metering location on an invoice.
type LocationStore interface {
	Get(ctx context.Context, id int64) (*locations.Location, error)
}

// CustomerStore resolves the customer owning a location.
type CustomerStore interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

// Renderer produces the PDF document and returns its storage reference.
type Renderer interface {
	Generate(ctx context.Context, data report.DocumentData) (string, error)
}

// DocumentProcessor renders invoice documents in the background.
type DocumentProcessor struct {
	logger    *slog.Logger
	invoices  InvoiceStore
	locations LocationStore
	customers CustomerStore
	renderer  Renderer
}

// NewDocumentProcessor constructs the invoice document processor.
func NewDocumentProcessor(logger *slog.Logger, inv InvoiceStore, loc LocationStore, cust CustomerStore, renderer Renderer) *DocumentProcessor {
	return &DocumentProcessor{logger: logger, invoices: inv, locations: loc, customers: cust, renderer: renderer}
}

// Handle processes one TaskInvoiceDocument task. The invoice status moves to
// DOCUMENT_GENERATED only after the document is stored; a failed render leaves
// the invoice untouched so the task can retry.
func (p *DocumentProcessor) Handle(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	detail, err := p.invoices.Get(ctx, payload.InvoiceID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			p.logger.Warn("document job for missing invoice", slog.Int64("invoice_id", payload.InvoiceID))
			return asynq.SkipRetry
		}
		return fmt.Errorf("load invoice %d: %w", payload.InvoiceID, err)
	}

	data, err := p.buildDocumentData(ctx, detail)
	if err != nil {
		return err
	}

	ref, err := p.renderer.Generate(ctx, data)
	if err != nil {
		return fmt.Errorf("render invoice %s: %w", detail.Number, err)
	}

	if err := p.invoices.AttachDocument(ctx, detail.ID, ref); err != nil {
		if errors.Is(err, invoices.ErrInvalidTransition) {
			p.logger.Warn("document already attached", slog.String("number", detail.Number))
			return asynq.SkipRetry
		}
		return fmt.Errorf("attach document for invoice %s: %w", detail.Number, err)
	}

	p.logger.Info("invoice document generated",
		slog.String("number", detail.Number),
		slog.String("ref", ref))
	return nil
}

func (p *DocumentProcessor) buildDocumentData(ctx context.Context, detail *invoices.InvoiceDetail) (report.DocumentData, error) {
	location, err := p.locations.Get(ctx, detail.LocationID)
	if err != nil {
		return report.DocumentData{}, fmt.Errorf("load location %d: %w", detail.LocationID, err)
	}
	customer, err := p.customers.Get(ctx, location.CustomerID)
	if err != nil {
		return report.DocumentData{}, fmt.Errorf("load customer %d: %w", location.CustomerID, err)
	}

	data := report.DocumentData{
		Number:       detail.Number,
		IssuedAt:     detail.IssuedAt,
		PeriodStart:  detail.PeriodStart,
		PeriodEnd:    detail.PeriodEnd,
		TotalAmount:  detail.TotalAmount,
		CustomerName: customer.Name,
		LocationName: location.Name,
		GeneratedAt:  time.Now().UTC(),
	}
	if customer.Address != nil {
		data.CustomerAddr = *customer.Address
	}
	if location.Address != nil {
		data.LocationAddr = *location.Address
	}
	if location.MeterNumber != nil {
		data.MeterNumber = *location.MeterNumber
	}

	data.Lines = make([]report.DocumentLine, 0, len(detail.LineItems))
	for _, item := range detail.LineItems {
		data.Lines = append(data.Lines, report.DocumentLine{
			TakenAt:        item.TakenAt,
			ConsumptionKWh: item.ConsumptionKWh,
			UnitPrice:      item.UnitPrice,
			Amount:         item.Amount,
		})
	}
	data.Stats = lineStats(detail.LineItems)
	return data, nil
}

func lineStats(items []invoices.LineItem) report.DocumentStats {
	stats := report.DocumentStats{Count: len(items)}
	if len(items) == 0 {
		return stats
	}
	consumption := decimal.Zero
	priceSum := decimal.Zero
	min := items[0].UnitPrice
	max := items[0].UnitPrice
	for _, item := range items {
		consumption = consumption.Add(item.ConsumptionKWh)
		priceSum = priceSum.Add(item.UnitPrice)
		if item.UnitPrice.LessThan(min) {
			min = item.UnitPrice
		}
		if item.UnitPrice.GreaterThan(max) {
			max = item.UnitPrice
		}
	}
	stats.TotalConsumptionKWh = money.RoundConsumption(consumption)
	stats.AveragePrice = money.RoundPrice(priceSum.Div(decimal.NewFromInt(int64(len(items)))))
	stats.MinPrice = min
	stats.MaxPrice = max
	return stats
}
