package readings

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"github.com/gridbill/gridbill/internal/billing"
	"github.com/gridbill/gridbill/internal/billing/money"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// timestampLayouts are tried in order against each record's first field.
// Naive timestamps are interpreted in the service's configured zone.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2.1.2006 15:04",
	"2006-01-02",
}

// record is one parsed data row of an import file before validation.
type record struct {
	fileRow     int
	timestamp   time.Time
	consumption decimal.Decimal
	price       decimal.Decimal
}

// decodeImportFile turns raw upload bytes into text, trying the supported
// encodings in priority order. Meter exports in this market arrive as UTF-8,
// UTF-8 with BOM, ISO-8859-1 or Windows-1252.
func decodeImportFile(data []byte) (string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		trimmed := bytes.TrimPrefix(data, utf8BOM)
		if utf8.Valid(trimmed) {
			return string(trimmed), nil
		}
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	for _, cm := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252} {
		decoded, err := cm.NewDecoder().Bytes(data)
		if err == nil {
			return string(decoded), nil
		}
	}
	return "", billing.ErrEncoding
}

// parseImportFile reads the `;`-separated file into records, collecting every
// row's validation errors independently. Row references count the header, so
// data row i maps to file row i+2.
func parseImportFile(text string, loc *time.Location) ([]record, []string, int, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, []string{"file is empty"}, 0, nil
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 3 {
		return nil, []string{fmt.Sprintf("header has %d columns, expected 3", len(header))}, 0, nil
	}

	var records []record
	var rowErrors []string
	rows := 0
	for i := 0; ; i++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		rows++
		fileRow := i + 2
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", fileRow, err))
			continue
		}

		rec, errs := parseRecord(fields, fileRow, loc)
		if len(errs) > 0 {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %s", fileRow, strings.Join(errs, ", ")))
			continue
		}
		records = append(records, rec)
	}

	if rows == 0 {
		rowErrors = append(rowErrors, "file has no data rows")
	}
	return records, rowErrors, rows, nil
}

func parseRecord(fields []string, fileRow int, loc *time.Location) (record, []string) {
	rec := record{fileRow: fileRow}
	var errs []string

	if len(fields) < 3 {
		return rec, []string{fmt.Sprintf("has %d fields, expected 3", len(fields))}
	}

	ts := strings.TrimSpace(fields[0])
	if ts == "" {
		errs = append(errs, "missing timestamp")
	} else {
		parsed, err := parseTimestamp(ts, loc)
		if err != nil {
			errs = append(errs, "invalid timestamp")
		} else {
			rec.timestamp = parsed
		}
	}

	consumption, err := money.Parse(fields[1])
	switch {
	case err != nil:
		errs = append(errs, "invalid consumption value")
	case consumption.IsNegative():
		errs = append(errs, "consumption cannot be negative")
	default:
		rec.consumption = consumption
	}

	price, err := money.Parse(fields[2])
	switch {
	case err != nil:
		errs = append(errs, "invalid price value")
	case !price.IsPositive():
		errs = append(errs, "price must be positive")
	default:
		rec.price = price
	}

	return rec, errs
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
