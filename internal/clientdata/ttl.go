package clientdata

import "time"

// TTL constants for the cache tables.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Quotes go stale quickly during a trading session.
	TTLQuote = 10 * time.Minute

	// Completed daily bars only change once per session.
	TTLDailyHistory = 6 * time.Hour

	// Intraday candles accumulate continuously.
	TTLIntradayHistory = 10 * time.Minute
)
