package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/users", h.HandleCreateUser)

	r.Route("/users/{userID}/accounts", func(r chi.Router) {
		r.Get("/", h.withID("userID", h.HandleListAccounts))
		r.Post("/", h.withID("userID", h.HandleCreateAccount))
	})

	r.Route("/accounts/{accountID}", func(r chi.Router) {
		r.Get("/", h.withID("accountID", h.HandleGetAccount))
		r.Get("/transactions", h.withID("accountID", h.HandleTransactions))
		r.Post("/deposit", h.withID("accountID", h.HandleDeposit))
		r.Post("/withdraw", h.withID("accountID", h.HandleWithdraw))
		r.Post("/buy", h.withID("accountID", h.HandleBuy))
		r.Post("/sell", h.withID("accountID", h.HandleSell))
	})
}

// withID adapts a handler taking a numeric path parameter.
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
