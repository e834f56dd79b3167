package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/instruments", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)

		r.Route("/{ticker}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGet(w, r, chi.URLParam(r, "ticker"))
			})
			r.Get("/quote", func(w http.ResponseWriter, r *http.Request) {
				h.HandleQuote(w, r, chi.URLParam(r, "ticker"))
			})
			r.Get("/history/daily", func(w http.ResponseWriter, r *http.Request) {
				h.HandleDailyHistory(w, r, chi.URLParam(r, "ticker"))
			})
			r.Get("/history/intraday", func(w http.ResponseWriter, r *http.Request) {
				h.HandleIntradayHistory(w, r, chi.URLParam(r, "ticker"))
			})
		})
	})
}
