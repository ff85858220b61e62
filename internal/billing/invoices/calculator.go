package invoices

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/billing/money"
	"github.com/gridbill/gridbill/internal/billing/readings"
)

// Calculate turns a period's readings into line items and a total. Each line
// amount is consumption times price rounded half-to-even to cents; the total
// is the sum of the rounded line amounts, so it always equals what the lines
// show. Lines are ordered by reading timestamp ascending.
func Calculate(items []readings.Reading) (decimal.Decimal, []LineItem, error) {
	if len(items) == 0 {
		return decimal.Zero, nil, fmt.Errorf("calculate invoice: %w", billing.ErrEmptyPeriod)
	}

	sorted := make([]readings.Reading, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TakenAt.Before(sorted[j].TakenAt)
	})

	lines := make([]LineItem, len(sorted))
	total := decimal.Zero
	for i, reading := range sorted {
		amount := money.LineAmount(reading.ConsumptionKWh, reading.UnitPrice)
		lines[i] = LineItem{
			ReadingID:      reading.ID,
			TakenAt:        reading.TakenAt,
			ConsumptionKWh: reading.ConsumptionKWh,
			UnitPrice:      reading.UnitPrice,
			Amount:         amount,
		}
		total = total.Add(amount)
	}

	return money.RoundAmount(total), lines, nil
}
