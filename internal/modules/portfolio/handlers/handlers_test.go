package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investbot/investbot/internal/modules/catalog"
	"github.com/investbot/investbot/internal/modules/ledger"
	"github.com/investbot/investbot/internal/modules/portfolio"
)

type fakeLedger struct {
	accounts     map[int64]ledger.Account
	transactions map[int64][]ledger.Transaction
}

func (f *fakeLedger) ListByAccount(accountID int64) ([]ledger.Transaction, error) {
	return f.transactions[accountID], nil
}

func (f *fakeLedger) ListByUser(userID int64) ([]ledger.Transaction, error) {
	var all []ledger.Transaction
	for _, account := range f.accounts {
		if account.UserID == userID {
			all = append(all, f.transactions[account.ID]...)
		}
	}
	return all, nil
}

func (f *fakeLedger) GetAccount(id int64) (*ledger.Account, error) {
	if account, ok := f.accounts[id]; ok {
		return &account, nil
	}
	return nil, nil
}

func (f *fakeLedger) ListAccounts(userID int64) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, account := range f.accounts {
		if account.UserID == userID {
			out = append(out, account)
		}
	}
	return out, nil
}

type fakeCatalog map[string]catalog.Instrument

func (f fakeCatalog) GetByTicker(ticker string) (*catalog.Instrument, error) {
	if inst, ok := f[ticker]; ok {
		return &inst, nil
	}
	return nil, nil
}

func buy(accountID int64, ticker string, qty, price float64) ledger.Transaction {
	return ledger.Transaction{
		AccountID:  accountID,
		Type:       ledger.TxBuy,
		Ticker:     ticker,
		Quantity:   qty,
		Price:      price,
		Amount:     qty * price,
		ExecutedAt: time.Now(),
	}
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	src := &fakeLedger{
		accounts: map[int64]ledger.Account{
			1: {ID: 1, UserID: 7, Name: "Основной", Balance: 500},
		},
		transactions: map[int64][]ledger.Transaction{
			1: {buy(1, "SBER", 10, 100)},
		},
	}
	instruments := fakeCatalog{
		"SBER": {Ticker: "SBER", Name: "Сбербанк", Price: 120, Sector: "Финансы"},
	}

	service := portfolio.NewService(src, src, instruments, zerolog.Nop())
	router := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func get(t *testing.T, router chi.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandlePositions(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/accounts/1/positions")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Positions []portfolio.Position `json:"positions"`
		Count     int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "SBER", resp.Positions[0].Ticker)
	assert.Equal(t, 10.0, resp.Positions[0].Quantity)
	assert.Equal(t, 1200.0, resp.Positions[0].Value)
	assert.Equal(t, 200.0, resp.Positions[0].PnL)
}

func TestHandleSummary(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/accounts/1/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary portfolio.AccountSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 500.0, summary.Balance)
	assert.Equal(t, 1200.0, summary.Invested)
	assert.Equal(t, 1700.0, summary.TotalValue)

	rec = get(t, router, "/accounts/999/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, router, "/accounts/abc/summary")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSnapshot(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/users/7/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot portfolio.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, int64(7), snapshot.UserID)
	assert.Equal(t, 500.0, snapshot.Cash)
	assert.Equal(t, 1200.0, snapshot.BySector["Финансы"])
}
