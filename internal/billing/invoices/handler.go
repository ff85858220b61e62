package invoices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gridbill/gridbill/internal/platform/httpx"
)

// Enqueuer hands rendering and delivery work to the background worker.
type Enqueuer interface {
	EnqueueDocument(ctx context.Context, invoiceID int64) error
	EnqueueEmail(ctx context.Context, invoiceID int64, req SendEmailRequest) error
}

// Handler exposes the invoice JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	enqueue  Enqueuer
}

// NewHandler constructs a Handler. enqueue may be nil when no worker runs,
// disabling the document and email endpoints.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, enqueue Enqueuer) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, enqueue: enqueue}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	detail, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create invoice failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, detail)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListInvoicesRequest{Limit: 50}
	q := r.URL.Query()

	if v := q.Get("location_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "location_id must be an integer")
			return
		}
		req.LocationID = &parsed
	}
	if v := q.Get("status"); v != "" {
		status := Status(v)
		req.Status = &status
	}
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	result, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices": result,
		"total":    total,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateDocument queues PDF rendering for the invoice.
func (h *Handler) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	if h.enqueue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Worker Unavailable",
			"document generation requires a running worker")
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := ValidateTransition(detail.Status, StatusDocumentGenerated); err != nil {
		h.respondTransition(w, err)
		return
	}

	if err := h.enqueue.EnqueueDocument(r.Context(), id); err != nil {
		h.logger.Error("enqueue document failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Enqueue Failed", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

// SendEmail queues delivery of the rendered invoice document.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	if h.enqueue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Worker Unavailable",
			"email delivery requires a running worker")
		return
	}

	var req SendEmailRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := ValidateTransition(detail.Status, StatusSent); err != nil {
		h.respondTransition(w, err)
		return
	}

	if err := h.enqueue.EnqueueEmail(r.Context(), id, req); err != nil {
		h.logger.Error("enqueue email failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Enqueue Failed", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

// Download streams the rendered PDF. A missing document is generated on
// demand: the render is queued and the caller retries once it lands.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if detail.DocumentRef == nil {
		if h.enqueue == nil || ValidateTransition(detail.Status, StatusDocumentGenerated) != nil {
			httpx.Problem(w, http.StatusNotFound, "No Document",
				"invoice has no rendered document yet")
			return
		}
		if err := h.enqueue.EnqueueDocument(r.Context(), id); err != nil {
			h.logger.Error("enqueue document failed", slog.Any("error", err), slog.Int64("id", id))
			httpx.Problem(w, http.StatusInternalServerError, "Enqueue Failed", "")
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{
			"queued":  true,
			"message": "document generation queued, retry shortly",
		})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, *detail.DocumentRef)
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "invoice id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondTransition(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidTransition) {
		httpx.Problem(w, http.StatusConflict, "Invalid Status Transition", err.Error())
		return
	}
	httpx.RespondError(w, err)
}
