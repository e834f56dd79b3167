package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/investbot/investbot/internal/clients/moex"
	"github.com/investbot/investbot/internal/database"
)

// PriceSource supplies the execution price for market orders placed without
// an explicit price.
type PriceSource interface {
	CurrentPrice(ticker string) (float64, error)
}

// Service applies cash and trade operations: every operation updates the
// account balance and appends a history entry in one database transaction.
type Service struct {
	db           *sql.DB
	accounts     *AccountRepository
	transactions *TransactionRepository
	prices       PriceSource
	log          zerolog.Logger
}

// NewService creates a ledger service.
func NewService(db *sql.DB, accounts *AccountRepository, transactions *TransactionRepository,
	prices PriceSource, log zerolog.Logger) *Service {
	return &Service{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		prices:       prices,
		log:          log.With().Str("component", "ledger").Logger(),
	}
}

// Deposit adds cash to an account. A zero executedAt means now; earlier
// timestamps are allowed for backfilled history.
func (s *Service) Deposit(accountID int64, amount float64, executedAt time.Time) (*Transaction, error) {
	return s.applyCash(accountID, TxDeposit, amount, executedAt)
}

// Withdraw removes cash from an account. Fails when the balance is
// insufficient.
func (s *Service) Withdraw(accountID int64, amount float64, executedAt time.Time) (*Transaction, error) {
	return s.applyCash(accountID, TxWithdrawal, amount, executedAt)
}

func (s *Service) applyCash(accountID int64, txType TxType, amount float64, executedAt time.Time) (*Transaction, error) {
	entry := Transaction{
		Reference:  uuid.New().String(),
		AccountID:  accountID,
		Type:       txType,
		Amount:     amount,
		ExecutedAt: orNow(executedAt),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		account, err := s.accounts.GetAccountTx(tx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("account %d not found", accountID)
		}

		balance := account.Balance + amount
		if txType == TxWithdrawal {
			balance = account.Balance - amount
			if balance < 0 {
				return fmt.Errorf("insufficient funds: balance %.2f, requested %.2f",
					account.Balance, amount)
			}
		}

		if err := s.accounts.UpdateBalanceTx(tx, accountID, balance); err != nil {
			return err
		}

		entry.ID, err = s.transactions.InsertTx(tx, entry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", txType, err)
	}

	s.log.Info().Int64("account", accountID).Float64("amount", amount).
		Str("type", string(txType)).Msg("Cash operation applied")
	return &entry, nil
}

// Buy purchases quantity units of an instrument. A non-positive price means
// a market order at the currently stored price. Fails when cash is
// insufficient.
func (s *Service) Buy(accountID int64, ticker string, quantity, price float64, executedAt time.Time) (*Transaction, error) {
	return s.applyTrade(accountID, TxBuy, ticker, quantity, price, executedAt)
}

// Sell disposes quantity units of an instrument. Fails when the account does
// not hold enough of it.
func (s *Service) Sell(accountID int64, ticker string, quantity, price float64, executedAt time.Time) (*Transaction, error) {
	return s.applyTrade(accountID, TxSell, ticker, quantity, price, executedAt)
}

func (s *Service) applyTrade(accountID int64, txType TxType, ticker string, quantity, price float64, executedAt time.Time) (*Transaction, error) {
	ticker = moex.Normalize(ticker)

	if price <= 0 {
		if s.prices == nil {
			return nil, fmt.Errorf("%s failed: no price given and no price source configured", txType)
		}
		current, err := s.prices.CurrentPrice(ticker)
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", txType, err)
		}
		price = current
	}

	entry := Transaction{
		Reference:  uuid.New().String(),
		AccountID:  accountID,
		Type:       txType,
		Ticker:     ticker,
		Quantity:   quantity,
		Price:      price,
		Amount:     quantity * price,
		ExecutedAt: orNow(executedAt),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		account, err := s.accounts.GetAccountTx(tx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("account %d not found", accountID)
		}

		var balance float64
		switch txType {
		case TxBuy:
			balance = account.Balance - entry.Amount
			if balance < 0 {
				return fmt.Errorf("insufficient funds: balance %.2f, cost %.2f",
					account.Balance, entry.Amount)
			}
		case TxSell:
			held, err := s.transactions.NetQuantityTx(tx, accountID, ticker)
			if err != nil {
				return err
			}
			if held < quantity {
				return fmt.Errorf("insufficient position: holding %.4f %s, selling %.4f",
					held, ticker, quantity)
			}
			balance = account.Balance + entry.Amount
		}

		if err := s.accounts.UpdateBalanceTx(tx, accountID, balance); err != nil {
			return err
		}

		entry.ID, err = s.transactions.InsertTx(tx, entry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", txType, err)
	}

	s.log.Info().Int64("account", accountID).Str("ticker", ticker).
		Float64("quantity", quantity).Float64("price", price).
		Str("type", string(txType)).Msg("Trade applied")
	return &entry, nil
}

// History returns one account's transactions in execution order.
func (s *Service) History(accountID int64) ([]Transaction, error) {
	return s.transactions.ListByAccount(accountID)
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
