package locations

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches location routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/locations", h.List)
	r.Post("/locations", h.Create)
	r.Get("/locations/{id}", h.Get)
	r.Put("/locations/{id}", h.Update)
	r.Delete("/locations/{id}", h.Delete)
}
