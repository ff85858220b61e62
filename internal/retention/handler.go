package retention

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gridbill/gridbill/internal/platform/httpx"
)

// Handler exposes the admin cleanup endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches retention routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/admin/cleanup", h.Cleanup)
}

// Cleanup runs a sweep. It defaults to a dry run so a plain call can never
// destroy data; pass dry_run=false to execute.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	maxAgeDays := DefaultMaxAgeDays
	if v := q.Get("days_old"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "days_old must be a positive integer")
			return
		}
		maxAgeDays = parsed
	}
	dryRun := q.Get("dry_run") != "false"

	report, err := h.service.Sweep(r.Context(), maxAgeDays, dryRun)
	if err != nil {
		h.logger.Error("cleanup failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
