package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// transactionColumns avoids SELECT *; order must match scanTransaction.
const transactionColumns = `id, reference, account_id, type, ticker, quantity,
price, amount, executed_at, created_at`

// TransactionRepository handles the append-only transaction history.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// InsertTx appends one entry within a ledger transaction. The entry must
// already be validated.
func (r *TransactionRepository) InsertTx(tx *sql.Tx, entry Transaction) (int64, error) {
	result, err := tx.Exec(`INSERT INTO transactions
(reference, account_id, type, ticker, quantity, price, amount, executed_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Reference, entry.AccountID, string(entry.Type),
		nullString(entry.Ticker), nullFloat(entry.Quantity), nullFloat(entry.Price),
		entry.Amount, entry.ExecutedAt.Unix(), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read transaction id: %w", err)
	}
	return id, nil
}

// ListByAccount returns one account's history in execution order.
func (r *TransactionRepository) ListByAccount(accountID int64) ([]Transaction, error) {
	query := "SELECT " + transactionColumns +
		" FROM transactions WHERE account_id = ? ORDER BY executed_at, id"

	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByUser returns the combined history of all of a user's accounts in
// execution order.
func (r *TransactionRepository) ListByUser(userID int64) ([]Transaction, error) {
	query := "SELECT " + prefixColumns("t.", transactionColumns) + `
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE a.user_id = ?
ORDER BY t.executed_at, t.id`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// NetQuantityTx returns the held quantity of one ticker on one account,
// buys minus sells over the full history. Runs inside a ledger transaction
// so a concurrent sell cannot slip past the oversell check.
func (r *TransactionRepository) NetQuantityTx(tx *sql.Tx, accountID int64, ticker string) (float64, error) {
	var net sql.NullFloat64
	err := tx.QueryRow(`SELECT SUM(CASE WHEN type = 'buy' THEN quantity ELSE -quantity END)
FROM transactions
WHERE account_id = ? AND ticker = ? AND type IN ('buy', 'sell')`,
		accountID, ticker).Scan(&net)
	if err != nil {
		return 0, fmt.Errorf("failed to compute net quantity: %w", err)
	}
	return net.Float64, nil
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		entry, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

func scanTransaction(rows *sql.Rows) (Transaction, error) {
	var (
		entry                  Transaction
		txType                 string
		ticker                 sql.NullString
		quantity, price        sql.NullFloat64
		executedAt, createdAt  int64
	)

	err := rows.Scan(&entry.ID, &entry.Reference, &entry.AccountID, &txType,
		&ticker, &quantity, &price, &entry.Amount, &executedAt, &createdAt)
	if err != nil {
		return Transaction{}, err
	}

	entry.Type = TxType(txType)
	entry.Ticker = ticker.String
	entry.Quantity = quantity.Float64
	entry.Price = price.Float64
	entry.ExecutedAt = time.Unix(executedAt, 0)
	entry.CreatedAt = time.Unix(createdAt, 0)
	return entry, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
