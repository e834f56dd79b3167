// Package handlers provides HTTP handlers for portfolio valuations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/investbot/investbot/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests.
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler.
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{accountID}/positions", h.withID("accountID", h.HandlePositions))
	r.Get("/accounts/{accountID}/summary", h.withID("accountID", h.HandleSummary))
	r.Get("/users/{userID}/portfolio", h.withID("userID", h.HandleSnapshot))
}

// HandlePositions handles GET /api/accounts/{accountID}/positions
func (h *Handler) HandlePositions(w http.ResponseWriter, r *http.Request, accountID int64) {
	positions, err := h.service.AccountPositions(accountID)
	if err != nil {
		h.log.Error().Err(err).Int64("account", accountID).Msg("Failed to compute positions")
		http.Error(w, "Failed to compute positions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	})
}

// HandleSummary handles GET /api/accounts/{accountID}/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request, accountID int64) {
	summary, err := h.service.AccountSummary(accountID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("account", accountID).Msg("Failed to compute summary")
		http.Error(w, "Failed to compute summary", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleSnapshot handles GET /api/users/{userID}/portfolio
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request, userID int64) {
	snapshot, err := h.service.UserSnapshot(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("Failed to compute snapshot")
		http.Error(w, "Failed to compute snapshot", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) withID(param string, fn func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
		if err != nil {
			http.Error(w, param+" must be an integer", http.StatusBadRequest)
			return
		}
		fn(w, r, id)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
