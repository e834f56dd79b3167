package moex

import (
	"net/url"
	"strings"
)

// batchSize is the maximum number of identifiers joined into one ISS request.
const batchSize = 20

// Metrics holds the per-ticker result of a batched resolution. Price is
// always set for a resolved ticker; the trading metrics are nil when the
// venue did not report them or the ticker was resolved through the
// single-instrument fallback.
type Metrics struct {
	Price     float64
	Turnover  *float64
	Volume    *float64
	ChangePct *float64
}

// batchMetricsColumns narrows the batched marketdata response to the fields
// the extraction chains consult.
var batchMetricsColumns = strings.Join(append(append([]string{"SECID"}, shareFieldChain...),
	"VALTODAY", "VOLTODAY", "LASTTOPREVPRICE", "LASTCHANGEPRCNT"), ",")

// ResolveMany resolves prices (and, when wantMetrics is set, turnover,
// volume and percent change) for many tickers per request. Tickers are
// normalized, chunked, and sent as comma-joined lists to each default share
// board in priority order; any ticker still missing afterwards is retried
// individually through ResolvePrice.
//
// The result is always partial-tolerant: absence from the map is the failure
// signal for a ticker, never an error.
func (c *Client) ResolveMany(tickers []string, wantMetrics bool) map[string]Metrics {
	results := make(map[string]Metrics, len(tickers))
	if len(tickers) == 0 {
		return results
	}

	for start := 0; start < len(tickers); start += batchSize {
		end := start + batchSize
		if end > len(tickers) {
			end = len(tickers)
		}
		c.resolveChunk(tickers[start:end], wantMetrics, results)
	}

	// Individual fallback for anything the batched path missed. Metrics
	// other than price are left unset for these.
	for _, ticker := range tickers {
		if _, ok := results[ticker]; ok {
			continue
		}
		if price, ok := c.ResolvePrice(ticker, TypeShare, 0); ok {
			results[ticker] = Metrics{Price: price}
		}
	}

	return results
}

// resolveChunk issues one batched request per candidate board for a single
// chunk, filling results keyed by the caller's original tickers.
func (c *Client) resolveChunk(chunk []string, wantMetrics bool, results map[string]Metrics) {
	// Reverse map normalized -> original. Tickers that collide after
	// normalization keep the first original seen; later duplicates are
	// dropped from the batch but remain eligible for the fallback step.
	original := make(map[string]string, len(chunk))
	var secids []string
	for _, ticker := range chunk {
		secid := Normalize(ticker)
		if _, dup := original[secid]; dup {
			continue
		}
		original[secid] = ticker
		secids = append(secids, secid)
	}

	for _, board := range defaultShareBoards {
		if allResolved(original, results) {
			return
		}

		path := "/engines/stock/markets/shares/boards/" + url.PathEscape(board) + "/securities.json"
		query := url.Values{}
		query.Set("iss.only", "marketdata")
		query.Set("marketdata.columns", batchMetricsColumns)
		query.Set("securities", strings.Join(secids, ","))

		tables, err := c.get(path, query)
		if err != nil {
			c.log.Debug().Err(err).Str("board", board).Msg("Batched quote request failed")
			continue
		}

		md, ok := tables["marketdata"]
		if !ok {
			continue
		}

		for i := 0; i < md.Len(); i++ {
			row := md.Row(i)
			secid, ok := row.String("SECID")
			if !ok {
				continue
			}
			ticker, ok := original[secid]
			if !ok {
				continue
			}
			if _, done := results[ticker]; done {
				continue
			}

			price, ok := extractSharePrice(row)
			if !ok {
				continue
			}

			m := Metrics{Price: price}
			if wantMetrics {
				m.Turnover = extractTurnover(row)
				if v, ok := row.PositiveFloat("VOLTODAY"); ok {
					m.Volume = &v
				}
				m.ChangePct = extractChangePct(row)
			}
			results[ticker] = m
		}
	}
}

// allResolved reports whether every original ticker of a chunk has an entry.
func allResolved(original map[string]string, results map[string]Metrics) bool {
	for _, ticker := range original {
		if _, ok := results[ticker]; !ok {
			return false
		}
	}
	return true
}

// extractSharePrice applies the share field-priority chain to one row.
func extractSharePrice(row Row) (float64, bool) {
	for _, field := range shareFieldChain {
		if price, ok := row.PositiveFloat(field); ok {
			return price, true
		}
	}
	return 0, false
}

// extractTurnover prefers the currency-denominated column over the raw units
// column when both are present.
func extractTurnover(row Row) *float64 {
	for _, field := range []string{"VALTODAY", "VOLTODAY"} {
		if v, ok := row.PositiveFloat(field); ok {
			return &v
		}
	}
	return nil
}

// extractChangePct prefers the precomputed change percent over the
// ratio-to-previous-price column.
func extractChangePct(row Row) *float64 {
	for _, field := range []string{"LASTTOPREVPRICE", "LASTCHANGEPRCNT"} {
		// Percent change is legitimately negative or zero, so the plain
		// numeric accessor is used here.
		if v, ok := row.Float(field); ok {
			return &v
		}
	}
	return nil
}
