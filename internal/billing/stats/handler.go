package stats

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gridbill/gridbill/internal/platform/httpx"
)

// Handler exposes the statistics JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	dashboard *DashboardService
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, dashboard *DashboardService) *Handler {
	return &Handler{logger: logger, service: service, dashboard: dashboard}
}

// MountRoutes attaches statistics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/statistics/summary", h.Summary)
	r.Get("/statistics/dashboard", h.Dashboard)
}

// Dashboard serves the admin overview page data.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.dashboard.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	q := r.URL.Query()

	if v := q.Get("location_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "location_id must be an integer")
			return
		}
		req.LocationID = &parsed
	}
	if v := q.Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be YYYY-MM-DD")
			return
		}
		req.From = &parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be YYYY-MM-DD")
			return
		}
		req.To = &parsed
	}

	summary, err := h.service.Summary(r.Context(), req)
	if err != nil {
		h.logger.Error("summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
