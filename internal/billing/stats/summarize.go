// Package stats aggregates consumption readings into period summaries.
package stats

import (
	"github.com/shopspring/decimal"

	"github.com/gridbill/gridbill/internal/billing/money"
	"github.com/gridbill/gridbill/internal/billing/readings"
)

// Summary describes a set of readings. All quantities are rounded
// half-to-even exactly once, at their final precision.
type Summary struct {
	Count               int             `json:"count"`
	TotalConsumptionKWh decimal.Decimal `json:"total_consumption_kwh"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	AveragePrice        decimal.Decimal `json:"avg_price"`
	MinPrice            decimal.Decimal `json:"min_price"`
	MaxPrice            decimal.Decimal `json:"max_price"`
}

// Summarize reduces readings to a Summary. An empty input yields all zeros,
// never an error.
func Summarize(items []readings.Reading) Summary {
	if len(items) == 0 {
		return Summary{
			TotalConsumptionKWh: money.RoundConsumption(decimal.Zero),
			TotalCost:           money.RoundAmount(decimal.Zero),
			AveragePrice:        money.RoundPrice(decimal.Zero),
			MinPrice:            money.RoundPrice(decimal.Zero),
			MaxPrice:            money.RoundPrice(decimal.Zero),
		}
	}

	totalConsumption := decimal.Zero
	totalCost := decimal.Zero
	priceSum := decimal.Zero
	minPrice := items[0].UnitPrice
	maxPrice := items[0].UnitPrice

	for _, item := range items {
		totalConsumption = totalConsumption.Add(item.ConsumptionKWh)
		totalCost = totalCost.Add(item.ConsumptionKWh.Mul(item.UnitPrice))
		priceSum = priceSum.Add(item.UnitPrice)
		if item.UnitPrice.LessThan(minPrice) {
			minPrice = item.UnitPrice
		}
		if item.UnitPrice.GreaterThan(maxPrice) {
			maxPrice = item.UnitPrice
		}
	}

	count := decimal.NewFromInt(int64(len(items)))
	return Summary{
		Count:               len(items),
		TotalConsumptionKWh: money.RoundConsumption(totalConsumption),
		TotalCost:           money.RoundAmount(totalCost),
		AveragePrice:        money.RoundPrice(priceSum.Div(count)),
		MinPrice:            money.RoundPrice(minPrice),
		MaxPrice:            money.RoundPrice(maxPrice),
	}
}
