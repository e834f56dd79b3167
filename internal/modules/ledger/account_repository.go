package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AccountRepository handles user and account persistence in ledger.db.
type AccountRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		db:  db,
		log: log.With().Str("repo", "account").Logger(),
	}
}

// CreateUser registers a new user.
func (r *AccountRepository) CreateUser(telegramID, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if telegramID == "" || username == "" {
		return nil, fmt.Errorf("telegram id and username are required")
	}

	now := time.Now()
	result, err := r.db.Exec(
		"INSERT INTO users (telegram_id, username, created_at) VALUES (?, ?, ?)",
		telegramID, username, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}

	return &User{ID: id, TelegramID: telegramID, Username: username, CreatedAt: now}, nil
}

// GetUserByTelegramID returns a user, or nil when unknown.
func (r *AccountRepository) GetUserByTelegramID(telegramID string) (*User, error) {
	var (
		user      User
		createdAt int64
	)
	err := r.db.QueryRow(
		"SELECT id, telegram_id, username, created_at FROM users WHERE telegram_id = ?",
		telegramID).Scan(&user.ID, &user.TelegramID, &user.Username, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// CreateAccount opens a new account for a user.
func (r *AccountRepository) CreateAccount(userID int64, name string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("account name is required")
	}

	now := time.Now()
	result, err := r.db.Exec(
		"INSERT INTO accounts (user_id, name, balance, created_at) VALUES (?, ?, 0, ?)",
		userID, name, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read account id: %w", err)
	}

	return &Account{ID: id, UserID: userID, Name: name, CreatedAt: now}, nil
}

// GetAccount returns an account, or nil when unknown.
func (r *AccountRepository) GetAccount(id int64) (*Account, error) {
	return r.getAccount(r.db.QueryRow(
		"SELECT id, user_id, name, balance, created_at FROM accounts WHERE id = ?", id))
}

// GetAccountTx is GetAccount inside a transaction, where the read must see
// the transaction's own writes.
func (r *AccountRepository) GetAccountTx(tx *sql.Tx, id int64) (*Account, error) {
	return r.getAccount(tx.QueryRow(
		"SELECT id, user_id, name, balance, created_at FROM accounts WHERE id = ?", id))
}

func (r *AccountRepository) getAccount(row *sql.Row) (*Account, error) {
	var (
		account   Account
		createdAt int64
	)
	err := row.Scan(&account.ID, &account.UserID, &account.Name, &account.Balance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	account.CreatedAt = time.Unix(createdAt, 0)
	return &account, nil
}

// ListAccounts returns all accounts of one user ordered by creation.
func (r *AccountRepository) ListAccounts(userID int64) ([]Account, error) {
	rows, err := r.db.Query(
		"SELECT id, user_id, name, balance, created_at FROM accounts WHERE user_id = ? ORDER BY id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var (
			account   Account
			createdAt int64
		)
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &account.Balance, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.CreatedAt = time.Unix(createdAt, 0)
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// UpdateBalanceTx sets an account balance within a ledger transaction.
func (r *AccountRepository) UpdateBalanceTx(tx *sql.Tx, accountID int64, balance float64) error {
	result, err := tx.Exec("UPDATE accounts SET balance = ? WHERE id = ?", balance, accountID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %d not found", accountID)
	}
	return nil
}
