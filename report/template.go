package report

import (
	"bytes"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

// Company identifies the issuer printed on every invoice document.
type Company struct {
	Name      string
	Address   string
	TaxNumber string
	Phone     string
	Email     string
}

// DocumentLine is one priced consumption interval on the document.
type DocumentLine struct {
	TakenAt        time.Time
	ConsumptionKWh decimal.Decimal
	UnitPrice      decimal.Decimal
	Amount         decimal.Decimal
}

// DocumentStats summarises the invoiced period.
type DocumentStats struct {
	Count               int
	TotalConsumptionKWh decimal.Decimal
	AveragePrice        decimal.Decimal
	MinPrice            decimal.Decimal
	MaxPrice            decimal.Decimal
}

// DocumentData feeds the invoice template.
type DocumentData struct {
	Number       string
	IssuedAt     time.Time
	PeriodStart  time.Time
	PeriodEnd    time.Time
	TotalAmount  decimal.Decimal
	CustomerName string
	CustomerAddr string
	LocationName string
	LocationAddr string
	MeterNumber  string
	Lines        []DocumentLine
	Stats        DocumentStats
	Company      Company
	GeneratedAt  time.Time
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"date":     func(t time.Time) string { return t.Format("02.01.2006") },
	"datetime": func(t time.Time) string { return t.Format("02.01.2006 15:04") },
	"kwh":      func(d decimal.Decimal) string { return d.StringFixed(4) },
	"price":    func(d decimal.Decimal) string { return d.StringFixed(5) },
	"eur":      func(d decimal.Decimal) string { return d.StringFixed(2) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice {{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #111; }
h1 { font-size: 20px; margin-bottom: 0; }
.meta { color: #555; margin-bottom: 24px; }
.parties { width: 100%; margin-bottom: 24px; }
.parties td { vertical-align: top; width: 50%; }
table.lines { width: 100%; border-collapse: collapse; }
table.lines th, table.lines td { border-bottom: 1px solid #ddd; padding: 4px 6px; text-align: right; }
table.lines th:first-child, table.lines td:first-child { text-align: left; }
tfoot td { font-weight: bold; border-top: 2px solid #111; }
.stats { margin-top: 24px; color: #555; }
.footer { margin-top: 36px; font-size: 10px; color: #888; }
</style>
</head>
<body>
<h1>Invoice {{.Number}}</h1>
<div class="meta">
Issued {{date .IssuedAt}} &middot; Period {{date .PeriodStart}} &ndash; {{date .PeriodEnd}}
</div>

<table class="parties">
<tr>
<td>
<strong>{{.Company.Name}}</strong><br>
{{.Company.Address}}<br>
Tax no. {{.Company.TaxNumber}}<br>
{{.Company.Phone}} &middot; {{.Company.Email}}
</td>
<td>
<strong>{{.CustomerName}}</strong><br>
{{.CustomerAddr}}<br>
Location: {{.LocationName}}{{if .LocationAddr}}, {{.LocationAddr}}{{end}}<br>
{{if .MeterNumber}}Meter {{.MeterNumber}}{{end}}
</td>
</tr>
</table>

<table class="lines">
<thead>
<tr><th>Interval</th><th>Consumption (kWh)</th><th>Price (EUR/kWh)</th><th>Amount (EUR)</th></tr>
</thead>
<tbody>
{{range .Lines}}
<tr><td>{{datetime .TakenAt}}</td><td>{{kwh .ConsumptionKWh}}</td><td>{{price .UnitPrice}}</td><td>{{eur .Amount}}</td></tr>
{{end}}
</tbody>
<tfoot>
<tr><td colspan="3">Total</td><td>{{eur .TotalAmount}}</td></tr>
</tfoot>
</table>

<div class="stats">
{{.Stats.Count}} intervals &middot; {{kwh .Stats.TotalConsumptionKWh}} kWh total &middot;
avg {{price .Stats.AveragePrice}} &middot; min {{price .Stats.MinPrice}} &middot; max {{price .Stats.MaxPrice}} EUR/kWh
</div>

<div class="footer">Generated {{datetime .GeneratedAt}}</div>
</body>
</html>
`))

// RenderInvoiceHTML fills the invoice template.
func RenderInvoiceHTML(data DocumentData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
