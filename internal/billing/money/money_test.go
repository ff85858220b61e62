package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestLineAmount(t *testing.T) {
	amount := LineAmount(dec(t, "10.0000"), dec(t, "0.15000"))
	require.True(t, amount.Equal(dec(t, "1.50")), "got %s", amount)

	amount = LineAmount(dec(t, "5.0000"), dec(t, "0.20000"))
	require.True(t, amount.Equal(dec(t, "1.00")), "got %s", amount)
}

func TestLineAmountHalfToEven(t *testing.T) {
	// 0.045 sits exactly between 0.04 and 0.05; bankers rounding picks 0.04.
	amount := LineAmount(dec(t, "0.9"), dec(t, "0.05"))
	require.True(t, amount.Equal(dec(t, "0.04")), "got %s", amount)

	// 0.055 rounds up to the even 0.06.
	amount = LineAmount(dec(t, "1.1"), dec(t, "0.05"))
	require.True(t, amount.Equal(dec(t, "0.06")), "got %s", amount)
}

func TestLineAmountIdempotent(t *testing.T) {
	c, p := dec(t, "3.3333"), dec(t, "0.12345")
	first := LineAmount(c, p)
	second := LineAmount(c, p)
	require.True(t, first.Equal(second))
	require.True(t, RoundAmount(first).Equal(first), "re-rounding must not drift")
}

func TestParseAcceptsCommaAndDot(t *testing.T) {
	d, err := Parse("12,3456")
	require.NoError(t, err)
	require.True(t, d.Equal(dec(t, "12.3456")))

	d, err = Parse(" 0.15 ")
	require.NoError(t, err)
	require.True(t, d.Equal(dec(t, "0.15")))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
	_, err = Parse("abc")
	require.Error(t, err)
}
