package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all screening routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/metrics", h.HandleListMetrics)

	r.Route("/rulesets", func(r chi.Router) {
		r.Get("/", h.HandleListRulesets)
		r.Get("/{sector}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetRuleset(w, r, chi.URLParam(r, "sector"))
		})
	})

	r.Route("/entities", func(r chi.Router) {
		r.Get("/", h.HandleListEntities)
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetEntity(w, r, chi.URLParam(r, "id"))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleSaveEntity(w, r, chi.URLParam(r, "id"))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDeleteEntity(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/{id}/verdict", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetLatestVerdict(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/{id}/screen", func(w http.ResponseWriter, r *http.Request) {
			h.HandleScreenEntity(w, r, chi.URLParam(r, "id"))
		})
	})

	r.Post("/screen", h.HandleScreen)

	// Flat so the server can mount /verdicts/stream alongside.
	r.Get("/verdicts/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetVerdicts(w, r, chi.URLParam(r, "id"))
	})
	r.Get("/runs/{runID}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetRun(w, r, chi.URLParam(r, "runID"))
	})
}
