package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investbot/investbot/internal/modules/ledger"
)

const testSchema = `
CREATE TABLE users (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_id TEXT NOT NULL UNIQUE,
	username    TEXT NOT NULL UNIQUE,
	created_at  INTEGER NOT NULL
);

CREATE TABLE accounts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id),
	name       TEXT NOT NULL,
	balance    REAL NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE transactions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	reference  TEXT NOT NULL UNIQUE,
	account_id INTEGER NOT NULL REFERENCES accounts(id),
	type       TEXT NOT NULL CHECK (type IN ('deposit', 'withdrawal', 'buy', 'sell')),
	ticker     TEXT,
	quantity   REAL,
	price      REAL,
	amount     REAL NOT NULL CHECK (amount > 0),
	executed_at INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
`

type fixedPrices map[string]float64

func (p fixedPrices) CurrentPrice(ticker string) (float64, error) {
	price, ok := p[ticker]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no stored price for %s", ticker)
	}
	return price, nil
}

func newTestRouter(t *testing.T) (chi.Router, int64) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	accounts := ledger.NewAccountRepository(db, zerolog.Nop())
	transactions := ledger.NewTransactionRepository(db, zerolog.Nop())
	service := ledger.NewService(db, accounts, transactions, fixedPrices{"SBER": 281.3}, zerolog.Nop())

	user, err := accounts.CreateUser("tg-1", "ivan")
	require.NoError(t, err)
	account, err := accounts.CreateAccount(user.ID, "Основной")
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(accounts, service, zerolog.Nop()).RegisterRoutes(router)
	return router, account.ID
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateUser(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/users",
		map[string]string{"telegram_id": "tg-2", "username": "petr"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var user ledger.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "petr", user.Username)
	assert.NotZero(t, user.ID)
}

func TestHandleDepositAndBalance(t *testing.T) {
	router, accountID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", accountID),
		map[string]interface{}{"amount": 10000})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/accounts/%d", accountID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var account ledger.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, 10000.0, account.Balance)
}

func TestHandleWithdraw_InsufficientFunds(t *testing.T) {
	router, accountID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/accounts/%d/withdraw", accountID),
		map[string]interface{}{"amount": 500})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient funds")
}

func TestHandleBuyAndTransactions(t *testing.T) {
	router, accountID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", accountID),
		map[string]interface{}{"amount": 10000})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/accounts/%d/buy", accountID),
		map[string]interface{}{"ticker": "SBER", "quantity": 10, "price": 280})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry ledger.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, ledger.TxBuy, entry.Type)
	assert.InDelta(t, 2800.0, entry.Amount, 1e-9)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/accounts/%d/transactions", accountID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Transactions []ledger.Transaction `json:"transactions"`
		Count        int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 2, listing.Count)
}

func TestHandleBuy_MarketOrder(t *testing.T) {
	router, accountID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", accountID),
		map[string]interface{}{"amount": 10000})
	require.Equal(t, http.StatusCreated, rec.Code)

	// No price: executed at the stored catalog price.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/accounts/%d/buy", accountID),
		map[string]interface{}{"ticker": "SBER", "quantity": 10})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry ledger.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, 281.3, entry.Price)
}

func TestHandleSell_Oversell(t *testing.T) {
	router, accountID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/accounts/%d/sell", accountID),
		map[string]interface{}{"ticker": "SBER", "quantity": 5, "price": 280})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient position")
}

func TestHandlers_BadInputs(t *testing.T) {
	router, accountID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", accountID),
		map[string]interface{}{"amount": 100, "executed_at": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", accountID),
		bytes.NewReader([]byte("not json")))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/accounts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/accounts/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
