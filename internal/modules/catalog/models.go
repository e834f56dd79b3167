// Package catalog maintains the tradable instrument universe: the exchange
// listing synced into SQLite, curated metadata on top of it, and the stored
// price every downstream valuation reads.
package catalog

import "time"

// Kind distinguishes the two instrument classes in the catalog.
type Kind string

const (
	KindShare Kind = "share"
	KindBond  Kind = "bond"
)

// Instrument is one catalog row. Price is the last stored valuation price;
// it survives upstream outages and is only replaced by a newer usable quote.
type Instrument struct {
	Ticker        string    `json:"ticker"`
	Name          string    `json:"name"`
	Kind          Kind      `json:"kind"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	LotSize       int       `json:"lot_size"`
	Sector        string    `json:"sector,omitempty"`
	Description   string    `json:"description,omitempty"`
	LogoURL       string    `json:"logo_url,omitempty"`
	FaceValue     float64   `json:"face_value,omitempty"`
	CouponPercent float64   `json:"coupon_percent,omitempty"`
	MaturityDate  string    `json:"maturity_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SyncResult summarizes one catalog sync run.
type SyncResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// RefreshResult summarizes one price refresh run.
type RefreshResult struct {
	Refreshed int `json:"refreshed"`
	Stale     int `json:"stale"`
	Total     int `json:"total"`
}
