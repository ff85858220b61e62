// Package billing holds the shared error taxonomy and report types used by
// the metering and invoicing domain packages.
package billing

import "errors"

var (
	// ErrNotFound indicates a referenced customer, location, reading or
	// invoice does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a malformed or out-of-range input field.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateReading indicates a reading already exists for the same
	// location and timestamp.
	ErrDuplicateReading = errors.New("reading already exists for this location and timestamp")
	// ErrMeterNumberConflict indicates another location already carries the
	// same meter number.
	ErrMeterNumberConflict = errors.New("meter number already in use")
	// ErrEmptyPeriod indicates an invoice was requested for a period with no
	// matching readings.
	ErrEmptyPeriod = errors.New("no readings in period")
	// ErrNumberConflict indicates a concurrent caller won the race for the
	// same invoice number; the losing call may retry with a fresh sequence.
	ErrNumberConflict = errors.New("invoice number already taken")
	// ErrBatchTooLarge indicates a bulk ingestion call exceeded the record cap.
	ErrBatchTooLarge = errors.New("batch exceeds maximum record count")
	// ErrEncoding indicates none of the supported text encodings could decode
	// an import file.
	ErrEncoding = errors.New("unsupported file encoding")
	// ErrIntegrityViolation indicates a delete was refused because dependent
	// records still reference the entity.
	ErrIntegrityViolation = errors.New("entity still has dependent records")
)
