package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gridbill/gridbill/internal/billing/customers"
	"github.com/gridbill/gridbill/internal/billing/invoices"
	"github.com/gridbill/gridbill/internal/billing/locations"
	"github.com/gridbill/gridbill/internal/billing/readings"
	"github.com/gridbill/gridbill/internal/billing/stats"
	"github.com/gridbill/gridbill/internal/observability"
	"github.com/gridbill/gridbill/internal/retention"
	"github.com/gridbill/gridbill/jobs"
	"github.com/gridbill/gridbill/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CustomerHandler  *customers.Handler
	LocationHandler  *locations.Handler
	ReadingHandler   *readings.Handler
	StatsHandler     *stats.Handler
	InvoiceHandler   *invoices.Handler
	RetentionHandler *retention.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router for the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.CustomerHandler != nil {
			params.CustomerHandler.MountRoutes(r)
		}
		if params.LocationHandler != nil {
			params.LocationHandler.MountRoutes(r)
		}
		if params.ReadingHandler != nil {
			params.ReadingHandler.MountRoutes(r)
		}
		if params.StatsHandler != nil {
			params.StatsHandler.MountRoutes(r)
		}
		if params.InvoiceHandler != nil {
			params.InvoiceHandler.MountRoutes(r)
		}
		if params.RetentionHandler != nil {
			params.RetentionHandler.MountRoutes(r)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
