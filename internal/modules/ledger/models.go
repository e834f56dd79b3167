// Package ledger records cash and trade activity: users, their brokerage
// accounts, and an append-only transaction history the portfolio valuations
// are folded from.
package ledger

import (
	"fmt"
	"time"
)

// TxType is the transaction kind.
type TxType string

const (
	TxDeposit    TxType = "deposit"
	TxWithdrawal TxType = "withdrawal"
	TxBuy        TxType = "buy"
	TxSell       TxType = "sell"
)

// User is one registered account owner.
type User struct {
	ID         int64     `json:"id"`
	TelegramID string    `json:"telegram_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
}

// Account is one brokerage account. Balance is the free cash in rubles.
type Account struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is one ledger entry. Reference is a caller-visible idempotency
// key; Amount is the cash delta magnitude and is always positive, the Type
// carries the direction. Ticker, Quantity and Price are set on trades only.
type Transaction struct {
	ID         int64     `json:"id"`
	Reference  string    `json:"reference"`
	AccountID  int64     `json:"account_id"`
	Type       TxType    `json:"type"`
	Ticker     string    `json:"ticker,omitempty"`
	Quantity   float64   `json:"quantity,omitempty"`
	Price      float64   `json:"price,omitempty"`
	Amount     float64   `json:"amount"`
	ExecutedAt time.Time `json:"executed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks internal consistency before insertion.
func (t *Transaction) Validate() error {
	switch t.Type {
	case TxDeposit, TxWithdrawal, TxBuy, TxSell:
	default:
		return fmt.Errorf("invalid transaction type: %s", t.Type)
	}

	if t.Amount <= 0 {
		return fmt.Errorf("transaction amount must be positive, got %f", t.Amount)
	}

	isTrade := t.Type == TxBuy || t.Type == TxSell
	if isTrade {
		if t.Ticker == "" {
			return fmt.Errorf("%s transaction requires a ticker", t.Type)
		}
		if t.Quantity <= 0 {
			return fmt.Errorf("%s quantity must be positive, got %f", t.Type, t.Quantity)
		}
		if t.Price <= 0 {
			return fmt.Errorf("%s price must be positive, got %f", t.Type, t.Price)
		}
	} else if t.Ticker != "" {
		return fmt.Errorf("%s transaction must not carry a ticker", t.Type)
	}

	return nil
}
