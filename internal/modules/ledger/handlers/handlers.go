// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/investbot/investbot/internal/modules/ledger"
)

// Handler handles ledger HTTP requests.
type Handler struct {
	accounts *ledger.AccountRepository
	service  *ledger.Service
	log      zerolog.Logger
}

// NewHandler creates a new ledger handler.
func NewHandler(accounts *ledger.AccountRepository, service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		service:  service,
		log:      log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleCreateUser handles POST /api/users
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TelegramID string `json:"telegram_id"`
		Username   string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.accounts.CreateUser(req.TelegramID, req.Username)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create user")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, user)
}

// HandleCreateAccount handles POST /api/users/{userID}/accounts
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.CreateAccount(userID, req.Name)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("Failed to create account")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, account)
}

// HandleListAccounts handles GET /api/users/{userID}/accounts
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request, userID int64) {
	accounts, err := h.accounts.ListAccounts(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("Failed to list accounts")
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// HandleGetAccount handles GET /api/accounts/{accountID}
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request, accountID int64) {
	account, err := h.accounts.GetAccount(accountID)
	if err != nil {
		h.log.Error().Err(err).Int64("account", accountID).Msg("Failed to load account")
		http.Error(w, "Failed to load account", http.StatusInternalServerError)
		return
	}
	if account == nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// HandleTransactions handles GET /api/accounts/{accountID}/transactions
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request, accountID int64) {
	history, err := h.service.History(accountID)
	if err != nil {
		h.log.Error().Err(err).Int64("account", accountID).Msg("Failed to load history")
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": history,
		"count":        len(history),
	})
}

// cashRequest is the body of deposit and withdrawal calls.
type cashRequest struct {
	Amount     float64 `json:"amount"`
	ExecutedAt string  `json:"executed_at,omitempty"`
}

// HandleDeposit handles POST /api/accounts/{accountID}/deposit
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request, accountID int64) {
	h.handleCash(w, r, accountID, h.service.Deposit)
}

// HandleWithdraw handles POST /api/accounts/{accountID}/withdraw
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request, accountID int64) {
	h.handleCash(w, r, accountID, h.service.Withdraw)
}

func (h *Handler) handleCash(w http.ResponseWriter, r *http.Request, accountID int64,
	apply func(int64, float64, time.Time) (*ledger.Transaction, error)) {
	var req cashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	executedAt, ok := parseExecutedAt(w, req.ExecutedAt)
	if !ok {
		return
	}

	entry, err := apply(accountID, req.Amount, executedAt)
	if err != nil {
		h.writeOperationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, entry)
}

// tradeRequest is the body of buy and sell calls. A missing price means a
// market order at the stored catalog price.
type tradeRequest struct {
	Ticker     string  `json:"ticker"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price,omitempty"`
	ExecutedAt string  `json:"executed_at,omitempty"`
}

// HandleBuy handles POST /api/accounts/{accountID}/buy
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request, accountID int64) {
	h.handleTrade(w, r, accountID, h.service.Buy)
}

// HandleSell handles POST /api/accounts/{accountID}/sell
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request, accountID int64) {
	h.handleTrade(w, r, accountID, h.service.Sell)
}

func (h *Handler) handleTrade(w http.ResponseWriter, r *http.Request, accountID int64,
	apply func(int64, string, float64, float64, time.Time) (*ledger.Transaction, error)) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	executedAt, ok := parseExecutedAt(w, req.ExecutedAt)
	if !ok {
		return
	}

	entry, err := apply(accountID, req.Ticker, req.Quantity, req.Price, executedAt)
	if err != nil {
		h.writeOperationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, entry)
}

// parseExecutedAt parses an optional RFC 3339 timestamp, writing a 400 on
// malformed input.
func parseExecutedAt(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		http.Error(w, "executed_at must be RFC 3339", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}

// writeOperationError maps ledger failures onto HTTP statuses: rejected
// operations are client errors, everything else is a 500.
func (h *Handler) writeOperationError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient"),
		strings.Contains(msg, "must be"),
		strings.Contains(msg, "requires"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "no stored price"):
		http.Error(w, msg, http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Msg("Ledger operation failed")
		http.Error(w, "Operation failed", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
