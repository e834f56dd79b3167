package database

// schemas maps database names to their embedded schema.
// Statements are idempotent so Migrate can run on every startup.
var schemas = map[string]string{
	"catalog": catalogSchema,
	"ledger":  ledgerSchema,
}

// catalogSchema holds the instrument catalog and the quote cache.
const catalogSchema = `
CREATE TABLE IF NOT EXISTS instruments (
	ticker          TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	kind            TEXT NOT NULL DEFAULT 'share' CHECK (kind IN ('share', 'bond')),
	price           REAL NOT NULL DEFAULT 0,
	currency        TEXT NOT NULL DEFAULT 'RUB',
	lot_size        INTEGER NOT NULL DEFAULT 1,
	sector          TEXT,
	description     TEXT,
	logo_url        TEXT,
	face_value      REAL,
	coupon_percent  REAL,
	maturity_date   TEXT,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_instruments_kind ON instruments(kind);
CREATE INDEX IF NOT EXISTS idx_instruments_sector ON instruments(sector);

CREATE TABLE IF NOT EXISTS quote_cache (
	ticker     TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quote_cache_expires ON quote_cache(expires_at);

CREATE TABLE IF NOT EXISTS history_cache (
	series     TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_cache_expires ON history_cache(expires_at);
`

// ledgerSchema holds users, accounts and the append-only transaction history.
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS users (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_id TEXT NOT NULL UNIQUE,
	username    TEXT NOT NULL UNIQUE,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id),
	name       TEXT NOT NULL,
	balance    REAL NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

CREATE TABLE IF NOT EXISTS transactions (
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

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_account_ticker ON transactions(account_id, ticker);
`
