package readings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridbill/gridbill/internal/billing"
)

const importHeader = "Timestamp;Consumption kWh;Price EUR/kWh\n"

func TestDecodeImportFileUTF8(t *testing.T) {
	text, err := decodeImportFile([]byte("a;b;c\n1;2;3\n"))
	require.NoError(t, err)
	require.Equal(t, "a;b;c\n1;2;3\n", text)
}

func TestDecodeImportFileBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a;b;c\n")...)
	text, err := decodeImportFile(data)
	require.NoError(t, err)
	require.Equal(t, "a;b;c\n", text)
}

func TestDecodeImportFileLatin1(t *testing.T) {
	// 0xE8 is "è" in ISO-8859-1 and invalid as a standalone UTF-8 byte.
	data := []byte{'m', 0xE8, ';', 'b', ';', 'c', '\n'}
	text, err := decodeImportFile(data)
	require.NoError(t, err)
	require.Equal(t, "mè;b;c\n", text)
}

func TestParseImportFileValid(t *testing.T) {
	text := importHeader +
		"2024-01-15 10:00:00;10,0;0,15\n" +
		"2024-01-15 11:00:00;5.5;0.20\n"

	records, rowErrors, rows, err := parseImportFile(text, time.UTC)
	require.NoError(t, err)
	require.Empty(t, rowErrors)
	require.Equal(t, 2, rows)
	require.Len(t, records, 2)

	require.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), records[0].timestamp)
	require.True(t, records[0].consumption.Equal(mustDecimal(t, "10.0")))
	require.True(t, records[0].price.Equal(mustDecimal(t, "0.15")))
	require.True(t, records[1].consumption.Equal(mustDecimal(t, "5.5")))
}

func TestParseImportFileRowErrors(t *testing.T) {
	text := importHeader +
		"2024-01-15 10:00:00;10,0;0,15\n" +
		";abc;-1\n" +
		"2024-01-15 12:00:00;3,0;0,18\n"

	records, rowErrors, rows, err := parseImportFile(text, time.UTC)
	require.NoError(t, err)
	require.Equal(t, 3, rows)
	require.Len(t, records, 2)
	require.Len(t, rowErrors, 1)

	// Second data row sits on file row 3 counting the header.
	require.Contains(t, rowErrors[0], "row 3")
	require.Contains(t, rowErrors[0], "missing timestamp")
	require.Contains(t, rowErrors[0], "invalid consumption value")
	require.Contains(t, rowErrors[0], "price must be positive")
}

func TestParseImportFileEmpty(t *testing.T) {
	_, rowErrors, rows, err := parseImportFile("", time.UTC)
	require.NoError(t, err)
	require.Zero(t, rows)
	require.NotEmpty(t, rowErrors)
}

func TestParseImportFileHeaderOnly(t *testing.T) {
	records, rowErrors, rows, err := parseImportFile(importHeader, time.UTC)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Zero(t, rows)
	require.Contains(t, rowErrors[0], "no data rows")
}

func TestParseTimestampLayouts(t *testing.T) {
	cet, err := time.LoadLocation("Europe/Ljubljana")
	require.NoError(t, err)

	for _, s := range []string{
		"2024-01-15 10:00:00",
		"2024-01-15T10:00:00",
		"15.1.2024 10:00",
	} {
		ts, err := parseTimestamp(s, cet)
		require.NoError(t, err, s)
		require.Equal(t, 10, ts.Hour(), s)
		require.Equal(t, cet, ts.Location(), s)
	}

	_, err = parseTimestamp("not a time", cet)
	require.Error(t, err)
}

func TestImportFileAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryReadingRepo()
	repo.locations[1] = true
	svc := NewService(testLogger(), repo, ServiceConfig{Timezone: time.UTC})

	text := importHeader +
		"2024-01-15 10:00:00;10,0;0,15\n" +
		";abc;0,15\n"

	result, err := svc.ImportFile(ctx, 1, []byte(text), false)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Zero(t, result.Imported)
	require.Equal(t, 1, result.ErrorCount)
	require.Empty(t, repo.readings, "rejected file must write nothing")
}

func TestImportFileSuccess(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryReadingRepo()
	repo.locations[1] = true
	svc := NewService(testLogger(), repo, ServiceConfig{Timezone: time.UTC})

	text := importHeader +
		"2024-01-15 10:00:00;10,0;0,15\n" +
		"2024-01-15 11:00:00;5,0;0,20\n"

	result, err := svc.ImportFile(ctx, 1, []byte(text), false)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.Imported)
	require.Len(t, repo.readings, 2)
}

func TestImportFileReplaceExisting(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryReadingRepo()
	repo.locations[1] = true
	svc := NewService(testLogger(), repo, ServiceConfig{Timezone: time.UTC})

	seed := importHeader + "2024-01-10 08:00:00;1,0;0,10\n"
	_, err := svc.ImportFile(ctx, 1, []byte(seed), false)
	require.NoError(t, err)

	replacement := importHeader + "2024-01-15 10:00:00;10,0;0,15\n"
	result, err := svc.ImportFile(ctx, 1, []byte(replacement), true)
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	require.Len(t, repo.readings, 1)
	for _, reading := range repo.readings {
		require.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), reading.TakenAt)
	}
}

func TestImportFileBatchCap(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryReadingRepo()
	repo.locations[1] = true
	svc := NewService(testLogger(), repo, ServiceConfig{MaxBatch: 2, Timezone: time.UTC})

	text := importHeader +
		"2024-01-15 10:00:00;1,0;0,15\n" +
		"2024-01-15 11:00:00;1,0;0,15\n" +
		"2024-01-15 12:00:00;1,0;0,15\n"

	_, err := svc.ImportFile(ctx, 1, []byte(text), false)
	require.ErrorIs(t, err, billing.ErrBatchTooLarge)
	require.Empty(t, repo.readings)
}

func TestImportFileUnknownLocation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), newMemoryReadingRepo(), ServiceConfig{Timezone: time.UTC})

	_, err := svc.ImportFile(ctx, 99, []byte(importHeader), false)
	require.ErrorIs(t, err, billing.ErrNotFound)
}

func TestImportFileErrorCap(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryReadingRepo()
	repo.locations[1] = true
	svc := NewService(testLogger(), repo, ServiceConfig{MaxReportedErrors: 2, Timezone: time.UTC})

	text := importHeader +
		";1;0,15\n" +
		";1;0,15\n" +
		";1;0,15\n" +
		";1;0,15\n"

	result, err := svc.ImportFile(ctx, 1, []byte(text), false)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 4, result.ErrorCount)
	require.Len(t, result.Errors, 2)
}
