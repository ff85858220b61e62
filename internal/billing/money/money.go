// Package money fixes the decimal precision and rounding policy for the
// billing domain: kWh quantities carry 4 decimals, unit prices 5 and currency
// amounts 2, all rounded half-to-even exactly once when a quantity is
// finalized.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// ConsumptionPlaces is the scale of kWh quantities.
	ConsumptionPlaces = 4
	// PricePlaces is the scale of per-kWh unit prices.
	PricePlaces = 5
	// AmountPlaces is the scale of currency amounts.
	AmountPlaces = 2
)

// RoundConsumption finalizes a kWh quantity.
func RoundConsumption(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(ConsumptionPlaces)
}

// RoundPrice finalizes a unit price.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(PricePlaces)
}

// RoundAmount finalizes a currency amount.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(AmountPlaces)
}

// LineAmount computes the charge for one reading: consumption times price,
// rounded to a currency amount. The rounding happens here, per reading, so
// totals are sums of already-rounded values.
func LineAmount(consumption, price decimal.Decimal) decimal.Decimal {
	return RoundAmount(consumption.Mul(price))
}

// Parse reads a decimal that may use either a dot or a comma as the decimal
// separator, as found in locale-formatted import files.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("money: empty value")
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return d, nil
}
