// Package portfolio values holdings: it folds the transaction history into
// positions and prices them with the stored catalog quotes.
package portfolio

// Position is one aggregated holding.
type Position struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	Sector       string  `json:"sector,omitempty"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	Cost         float64 `json:"cost"`
	CurrentPrice float64 `json:"current_price"`
	Value        float64 `json:"value"`
	PnL          float64 `json:"pnl"`
	PnLPct       float64 `json:"pnl_pct"`
}

// AccountSummary is one account's valuation: free cash plus priced
// positions.
type AccountSummary struct {
	AccountID  int64      `json:"account_id"`
	Name       string     `json:"name"`
	Balance    float64    `json:"balance"`
	Positions  []Position `json:"positions"`
	Invested   float64    `json:"invested"`
	TotalValue float64    `json:"total_value"`
	TotalPnL   float64    `json:"total_pnl"`
}

// Snapshot is a user's whole portfolio with positions merged across
// accounts.
type Snapshot struct {
	UserID     int64              `json:"user_id"`
	Cash       float64            `json:"cash"`
	Positions  []Position         `json:"positions"`
	Invested   float64            `json:"invested"`
	TotalValue float64            `json:"total_value"`
	TotalPnL   float64            `json:"total_pnl"`
	BySector   map[string]float64 `json:"by_sector"`
}
