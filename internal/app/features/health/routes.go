// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Mount registers /, /health and /api/health on r.
func Mount(r chi.Router, h *Handler) {
	r.Get("/", h.Root)
	r.Get("/health", h.Service)
	r.Get("/api/health", h.API)
}
