package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRenderInvoiceHTML(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	data := DocumentData{
		Number:       "2024-000001",
		IssuedAt:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		TotalAmount:  decimal.RequireFromString("2.50"),
		CustomerName: "Jana Novak",
		LocationName: "Main house",
		MeterNumber:  "SI-000123",
		Lines: []DocumentLine{
			{
				TakenAt:        base,
				ConsumptionKWh: decimal.RequireFromString("10.0"),
				UnitPrice:      decimal.RequireFromString("0.15"),
				Amount:         decimal.RequireFromString("1.50"),
			},
		},
		Stats: DocumentStats{
			Count:               1,
			TotalConsumptionKWh: decimal.RequireFromString("10.0"),
			AveragePrice:        decimal.RequireFromString("0.15"),
			MinPrice:            decimal.RequireFromString("0.15"),
			MaxPrice:            decimal.RequireFromString("0.15"),
		},
		Company:     Company{Name: "GridBill d.o.o.", TaxNumber: "SI12345678"},
		GeneratedAt: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
	}

	html, err := RenderInvoiceHTML(data)
	require.NoError(t, err)
	require.Contains(t, html, "Invoice 2024-000001")
	require.Contains(t, html, "Jana Novak")
	require.Contains(t, html, "SI-000123")
	require.Contains(t, html, "10.0000")
	require.Contains(t, html, "0.15000")
	require.Contains(t, html, "2.50")
	require.Contains(t, html, "GridBill d.o.o.")
}

func TestSanitizeNumber(t *testing.T) {
	require.Equal(t, "2024-000001", sanitizeNumber("2024-000001"))
	require.Equal(t, "a_b_c", sanitizeNumber("a/b c"))
}
