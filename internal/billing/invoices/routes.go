package invoices

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.List)
	r.Post("/invoices", h.Create)
	r.Get("/invoices/{id}", h.Get)
	r.Delete("/invoices/{id}", h.Delete)
	r.Get("/invoices/{id}/pdf", h.Download)
	r.Post("/invoices/{id}/document", h.GenerateDocument)
	r.Post("/invoices/{id}/send-email", h.SendEmail)
}
