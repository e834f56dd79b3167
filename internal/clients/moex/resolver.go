package moex

import (
	"net/url"
	"time"
)

// ResolvePrice resolves a spot price for one instrument. It walks the
// candidate board list in order; on each board it tries the live marketdata
// fields first and the most recent daily close as a last resort, returning
// the first usable value. faceValue is only consulted for bonds, whose
// quotes are percent-of-face; a bond quote without a known face value is
// unusable and resolution continues.
//
// The second return is false when every board is exhausted without a usable
// value. That is not an error: callers keep the previously stored price.
func (c *Client) ResolvePrice(ticker string, secType SecurityType, faceValue float64) (float64, bool) {
	secid := Normalize(ticker)

	for _, board := range c.candidateBoards(secid, secType) {
		if price, ok := c.livePrice(board, secid, secType, faceValue); ok {
			return price, true
		}
		if close, ok := c.lastDailyClose(board, secid, secType); ok {
			if price, ok := convertQuote(close, secType, faceValue); ok {
				return price, true
			}
		}
	}

	c.log.Debug().Str("secid", secid).Str("type", string(secType)).Msg("Price unavailable on every board")
	return 0, false
}

// livePrice queries one board's live marketdata and extracts a price through
// the field-priority chain. Transport errors and malformed payloads are
// misses for this board, not errors.
func (c *Client) livePrice(board, secid string, secType SecurityType, faceValue float64) (float64, bool) {
	path := "/engines/stock/markets/" + secType.Market() + "/boards/" + url.PathEscape(board) +
		"/securities/" + url.PathEscape(secid) + ".json"

	query := url.Values{}
	query.Set("iss.only", "marketdata")

	tables, err := c.get(path, query)
	if err != nil {
		c.log.Debug().Err(err).Str("board", board).Str("secid", secid).Msg("Live quote request failed")
		return 0, false
	}

	md, ok := tables["marketdata"]
	if !ok || md.Len() == 0 {
		return 0, false
	}
	row := md.Row(0)

	if secType == TypeBond {
		quote, ok := row.PositiveFloat(bondQuoteField)
		if !ok {
			return 0, false
		}
		return convertQuote(quote, secType, faceValue)
	}

	for _, field := range shareFieldChain {
		if price, ok := row.PositiveFloat(field); ok {
			return price, true
		}
	}
	return 0, false
}

// lastDailyClose fetches the most recent historical close on one board.
// The raw close is returned; bond closes are still percent-of-face and the
// caller converts them.
func (c *Client) lastDailyClose(board, secid string, secType SecurityType) (float64, bool) {
	path := "/history/engines/stock/markets/" + secType.Market() + "/boards/" + url.PathEscape(board) +
		"/securities/" + url.PathEscape(secid) + ".json"

	query := url.Values{}
	query.Set("history.columns", "TRADEDATE,CLOSE")
	query.Set("from", time.Now().AddDate(0, 0, -14).Format("2006-01-02"))
	query.Set("sort_order", "desc")
	query.Set("limit", "1")

	tables, err := c.get(path, query)
	if err != nil {
		c.log.Debug().Err(err).Str("board", board).Str("secid", secid).Msg("Historical close request failed")
		return 0, false
	}

	history, ok := tables["history"]
	if !ok || history.Len() == 0 {
		return 0, false
	}
	return history.Row(0).PositiveFloat("CLOSE")
}

// convertQuote turns a raw quoted value into a price. Shares are quoted
// directly; bond quotes are percent of face value, unusable when the face
// value is unknown.
func convertQuote(quote float64, secType SecurityType, faceValue float64) (float64, bool) {
	if secType != TypeBond {
		return quote, true
	}
	if faceValue <= 0 {
		return 0, false
	}
	return quote / 100 * faceValue, true
}
