package portfolio

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/investbot/investbot/internal/modules/catalog"
	"github.com/investbot/investbot/internal/modules/ledger"
)

// TransactionSource supplies transaction history in execution order.
type TransactionSource interface {
	ListByAccount(accountID int64) ([]ledger.Transaction, error)
	ListByUser(userID int64) ([]ledger.Transaction, error)
}

// AccountSource supplies account metadata and balances.
type AccountSource interface {
	GetAccount(id int64) (*ledger.Account, error)
	ListAccounts(userID int64) ([]ledger.Account, error)
}

// InstrumentSource supplies catalog rows for pricing and labeling.
type InstrumentSource interface {
	GetByTicker(ticker string) (*catalog.Instrument, error)
}

// Service computes position and portfolio valuations.
type Service struct {
	transactions TransactionSource
	accounts     AccountSource
	instruments  InstrumentSource
	log          zerolog.Logger
}

// NewService creates a portfolio service.
func NewService(transactions TransactionSource, accounts AccountSource,
	instruments InstrumentSource, log zerolog.Logger) *Service {
	return &Service{
		transactions: transactions,
		accounts:     accounts,
		instruments:  instruments,
		log:          log.With().Str("component", "portfolio").Logger(),
	}
}

// AccountPositions folds one account's history into priced positions.
func (s *Service) AccountPositions(accountID int64) ([]Position, error) {
	history, err := s.transactions.ListByAccount(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account history: %w", err)
	}
	return s.price(foldPositions(history)), nil
}

// AccountSummary values one account: free cash plus its positions.
func (s *Service) AccountSummary(accountID int64) (*AccountSummary, error) {
	account, err := s.accounts.GetAccount(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %d not found", accountID)
	}

	positions, err := s.AccountPositions(accountID)
	if err != nil {
		return nil, err
	}

	summary := &AccountSummary{
		AccountID: account.ID,
		Name:      account.Name,
		Balance:   account.Balance,
		Positions: positions,
	}
	for _, p := range positions {
		summary.Invested += p.Value
		summary.TotalPnL += p.PnL
	}
	summary.TotalValue = summary.Balance + summary.Invested
	return summary, nil
}

// UserSnapshot values a user's whole portfolio. Positions in the same
// instrument held on different accounts are merged into one.
func (s *Service) UserSnapshot(userID int64) (*Snapshot, error) {
	accounts, err := s.accounts.ListAccounts(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	history, err := s.transactions.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user history: %w", err)
	}

	snapshot := &Snapshot{
		UserID:    userID,
		Positions: s.price(foldPositions(history)),
		BySector:  make(map[string]float64),
	}
	for _, a := range accounts {
		snapshot.Cash += a.Balance
	}
	for _, p := range snapshot.Positions {
		snapshot.Invested += p.Value
		snapshot.TotalPnL += p.PnL
		snapshot.BySector[sectorOrDefault(p.Sector)] += p.Value
	}
	snapshot.TotalValue = snapshot.Cash + snapshot.Invested
	return snapshot, nil
}

// holding is the fold accumulator for one ticker.
type holding struct {
	quantity float64
	cost     float64
}

// foldPositions replays a transaction stream into per-ticker holdings.
// Buys add quantity and quantity times purchase price to the cost basis;
// sells subtract quantity and quantity times sale price. Tickers whose
// quantity ends at or below zero are dropped.
func foldPositions(history []ledger.Transaction) map[string]holding {
	holdings := make(map[string]holding)

	for _, tx := range history {
		switch tx.Type {
		case ledger.TxBuy:
			h := holdings[tx.Ticker]
			h.quantity += tx.Quantity
			h.cost += tx.Quantity * tx.Price
			holdings[tx.Ticker] = h
		case ledger.TxSell:
			h := holdings[tx.Ticker]
			h.quantity -= tx.Quantity
			h.cost -= tx.Quantity * tx.Price
			holdings[tx.Ticker] = h
		}
	}

	for ticker, h := range holdings {
		if h.quantity <= 0 {
			delete(holdings, ticker)
		}
	}
	return holdings
}

// price turns holdings into labeled, valued positions sorted by ticker.
// Instruments missing from the catalog are valued at zero rather than
// dropped.
func (s *Service) price(holdings map[string]holding) []Position {
	positions := make([]Position, 0, len(holdings))

	for ticker, h := range holdings {
		p := Position{
			Ticker:   ticker,
			Name:     ticker,
			Quantity: h.quantity,
			Cost:     h.cost,
			AvgPrice: h.cost / h.quantity,
		}

		inst, err := s.instruments.GetByTicker(ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to look up instrument")
		} else if inst != nil {
			p.Name = inst.Name
			p.Sector = inst.Sector
			p.CurrentPrice = inst.Price
		}

		p.Value = p.Quantity * p.CurrentPrice
		p.PnL = p.Value - p.Cost
		if p.Cost > 0 {
			p.PnLPct = p.PnL / p.Cost * 100
		}

		positions = append(positions, p)
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].Ticker < positions[j].Ticker })
	return positions
}

func sectorOrDefault(sector string) string {
	if sector == "" {
		return "Прочие"
	}
	return sector
}
