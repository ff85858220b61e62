package readings

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches reading routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/readings", h.List)
	r.Post("/readings", h.Create)
	r.Post("/readings/bulk", h.CreateBulk)
	r.Post("/readings/import", h.Import)
	r.Get("/readings/{id}", h.Get)
	r.Delete("/readings/{id}", h.Delete)
	r.Delete("/readings/location/{locationID}", h.DeleteAllForLocation)
}
