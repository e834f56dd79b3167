package ledger

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// fixedPrices is a scripted PriceSource.
type fixedPrices map[string]float64

func (p fixedPrices) CurrentPrice(ticker string) (float64, error) {
	price, ok := p[ticker]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no stored price for %s", ticker)
	}
	return price, nil
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func newTestService(t *testing.T, prices PriceSource) (*Service, *AccountRepository, int64) {
	db := setupTestDB(t)
	accounts := NewAccountRepository(db, zerolog.Nop())
	transactions := NewTransactionRepository(db, zerolog.Nop())
	svc := NewService(db, accounts, transactions, prices, zerolog.Nop())

	user, err := accounts.CreateUser("tg-1", "ivan")
	require.NoError(t, err)
	account, err := accounts.CreateAccount(user.ID, "Основной")
	require.NoError(t, err)

	return svc, accounts, account.ID
}

func TestCreateUser_DuplicateTelegramIDRejected(t *testing.T) {
	db := setupTestDB(t)
	accounts := NewAccountRepository(db, zerolog.Nop())

	_, err := accounts.CreateUser("tg-1", "ivan")
	require.NoError(t, err)

	_, err = accounts.CreateUser("tg-1", "petr")
	assert.Error(t, err)
}

func TestDeposit_IncreasesBalanceAndAppendsEntry(t *testing.T) {
	svc, accounts, accountID := newTestService(t, nil)

	entry, err := svc.Deposit(accountID, 10000, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, TxDeposit, entry.Type)
	assert.NotEmpty(t, entry.Reference)

	account, err := accounts.GetAccount(accountID)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, account.Balance)

	history, err := svc.History(accountID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 10000.0, history[0].Amount)
}

func TestDeposit_NonPositiveAmountRejected(t *testing.T) {
	svc, _, accountID := newTestService(t, nil)

	_, err := svc.Deposit(accountID, 0, time.Time{})
	assert.Error(t, err)

	_, err = svc.Deposit(accountID, -50, time.Time{})
	assert.Error(t, err)
}

func TestWithdraw_InsufficientFundsRejectedAtomically(t *testing.T) {
	svc, accounts, accountID := newTestService(t, nil)

	_, err := svc.Deposit(accountID, 100, time.Time{})
	require.NoError(t, err)

	_, err = svc.Withdraw(accountID, 500, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")

	account, _ := accounts.GetAccount(accountID)
	assert.Equal(t, 100.0, account.Balance, "failed withdrawal must not touch the balance")

	history, _ := svc.History(accountID)
	assert.Len(t, history, 1, "failed withdrawal must not append an entry")
}

func TestBuy_DeductsCostAndRecordsTrade(t *testing.T) {
	svc, accounts, accountID := newTestService(t, nil)

	_, err := svc.Deposit(accountID, 10000, time.Time{})
	require.NoError(t, err)

	entry, err := svc.Buy(accountID, "SBER", 10, 281.3, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "SBER", entry.Ticker)
	assert.InDelta(t, 2813.0, entry.Amount, 1e-9)

	account, _ := accounts.GetAccount(accountID)
	assert.InDelta(t, 7187.0, account.Balance, 1e-9)
}

func TestBuy_InsufficientFundsRejected(t *testing.T) {
	svc, accounts, accountID := newTestService(t, nil)

	_, err := svc.Deposit(accountID, 100, time.Time{})
	require.NoError(t, err)

	_, err = svc.Buy(accountID, "SBER", 10, 281.3, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")

	account, _ := accounts.GetAccount(accountID)
	assert.Equal(t, 100.0, account.Balance)
}

func TestBuy_MarketOrderUsesStoredPrice(t *testing.T) {
	svc, _, accountID := newTestService(t, fixedPrices{"SBER": 281.3})

	_, err := svc.Deposit(accountID, 10000, time.Time{})
	require.NoError(t, err)

	entry, err := svc.Buy(accountID, "SBER", 10, 0, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 281.3, entry.Price)
}

func TestBuy_MarketOrderWithoutPriceFails(t *testing.T) {
	svc, _, accountID := newTestService(t, fixedPrices{})

	_, err := svc.Deposit(accountID, 10000, time.Time{})
	require.NoError(t, err)

	_, err = svc.Buy(accountID, "SBER", 10, 0, time.Time{})
	assert.Error(t, err)
}

func TestBuy_NormalizesRetiredTickers(t *testing.T) {
	svc, _, accountID := newTestService(t, nil)

	_, err := svc.Deposit(accountID, 100000, time.Time{})
	require.NoError(t, err)

	entry, err := svc.Buy(accountID, "YNDX", 5, 4100, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "YDEX", entry.Ticker)
}

func TestSell_AddsProceedsAndRespectsHoldings(t *testing.T) {
	svc, accounts, accountID := newTestService(t, nil)

	_, err := svc.Deposit(accountID, 10000, time.Time{})
	require.NoError(t, err)
	_, err = svc.Buy(accountID, "SBER", 10, 280, time.Time{})
	require.NoError(t, err)

	entry, err := svc.Sell(accountID, "SBER", 4, 290, time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 1160.0, entry.Amount, 1e-9)

	account, _ := accounts.GetAccount(accountID)
	assert.InDelta(t, 10000-2800+1160, account.Balance, 1e-9)
}

func TestSell_OversellRejected(t *testing.T) {
	svc, accounts, accountID := newTestService(t, nil)

	_, err := svc.Deposit(accountID, 10000, time.Time{})
	require.NoError(t, err)
	_, err = svc.Buy(accountID, "SBER", 10, 280, time.Time{})
	require.NoError(t, err)

	_, err = svc.Sell(accountID, "SBER", 11, 290, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient position")

	account, _ := accounts.GetAccount(accountID)
	assert.InDelta(t, 7200.0, account.Balance, 1e-9)
}

func TestSell_UnownedTickerRejected(t *testing.T) {
	svc, _, accountID := newTestService(t, nil)

	_, err := svc.Deposit(accountID, 10000, time.Time{})
	require.NoError(t, err)

	_, err = svc.Sell(accountID, "GAZP", 1, 128, time.Time{})
	assert.Error(t, err)
}

func TestHistory_BackdatedEntriesSortByExecution(t *testing.T) {
	svc, _, accountID := newTestService(t, nil)

	now := time.Now()
	_, err := svc.Deposit(accountID, 10000, now)
	require.NoError(t, err)
	_, err = svc.Buy(accountID, "SBER", 10, 280, now.Add(time.Hour))
	require.NoError(t, err)

	// Backfilled deposit that happened before everything else.
	_, err = svc.Deposit(accountID, 500, now.Add(-24*time.Hour))
	require.NoError(t, err)

	history, err := svc.History(accountID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 500.0, history[0].Amount, "backdated entry sorts first")
	assert.Equal(t, TxBuy, history[2].Type)
}

func TestOperations_UnknownAccountRejected(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.Deposit(999, 100, time.Time{})
	assert.Error(t, err)

	_, err = svc.Buy(999, "SBER", 1, 100, time.Time{})
	assert.Error(t, err)
}

func TestReferences_AreUnique(t *testing.T) {
	svc, _, accountID := newTestService(t, nil)

	first, err := svc.Deposit(accountID, 100, time.Time{})
	require.NoError(t, err)
	second, err := svc.Deposit(accountID, 100, time.Time{})
	require.NoError(t, err)

	assert.NotEqual(t, first.Reference, second.Reference)
}
