package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	router.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Post("/sync", h.triggerSync)

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", h.createEntry)
			r.Get("/", h.listEntries)
			r.Get("/{key}", h.getEntry)
			r.Patch("/{key}", h.updateEntry)
			r.Delete("/{key}", h.deleteEntry)
		})

		r.Route("/conflicts", func(r chi.Router) {
			r.Get("/", h.listConflicts)
			r.Post("/{key}/resolve", h.resolveConflict)
		})
	})

	return router
}
