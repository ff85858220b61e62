package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/gridbill/gridbill/internal/billing"
)

// RespondError maps billing domain errors to RFC7807 responses.
func RespondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, billing.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, billing.ErrDuplicateReading):
		Problem(w, http.StatusConflict, "Duplicate Reading", err.Error())
	case errors.Is(err, billing.ErrMeterNumberConflict):
		Problem(w, http.StatusConflict, "Meter Number Conflict", err.Error())
	case errors.Is(err, billing.ErrNumberConflict):
		Problem(w, http.StatusConflict, "Invoice Number Conflict", err.Error())
	case errors.Is(err, billing.ErrIntegrityViolation):
		Problem(w, http.StatusConflict, "Integrity Violation", err.Error())
	case errors.Is(err, billing.ErrEmptyPeriod):
		Problem(w, http.StatusUnprocessableEntity, "Empty Period", err.Error())
	case errors.Is(err, billing.ErrBatchTooLarge):
		Problem(w, http.StatusRequestEntityTooLarge, "Batch Too Large", err.Error())
	case errors.Is(err, billing.ErrEncoding):
		Problem(w, http.StatusBadRequest, "Unsupported Encoding", err.Error())
	case errors.Is(err, billing.ErrValidation), errors.As(err, &verrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
