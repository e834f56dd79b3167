package moex

import (
	"net/url"
	"strconv"
	"time"
)

// Caps on the history windows a caller may request.
const (
	maxHistoryDays   = 120
	maxIntradayHours = 72
)

// DailyPrice is one point of a daily close series.
type DailyPrice struct {
	Date  time.Time
	Price float64
}

// IntradayPrice is one point of an intraday candle series.
type IntradayPrice struct {
	Time  time.Time
	Price float64
}

// validIntervals are the candle intervals ISS accepts, in minutes.
var validIntervals = map[int]bool{1: true, 10: true, 60: true}

// DailyHistory fetches the daily close series for the last `days` days,
// capped at 120. Boards are tried in the same priority order as price
// resolution; the first board returning a non-empty series wins. A nil
// series means total failure and is not an error.
func (c *Client) DailyHistory(ticker string, days int) []DailyPrice {
	if days <= 0 {
		return nil
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}

	secid := Normalize(ticker)
	from := time.Now().AddDate(0, 0, -days)

	for _, board := range c.candidateBoards(secid, TypeShare) {
		path := "/history/engines/stock/markets/shares/boards/" + url.PathEscape(board) +
			"/securities/" + url.PathEscape(secid) + ".json"

		query := url.Values{}
		query.Set("history.columns", "TRADEDATE,CLOSE")
		query.Set("from", from.Format("2006-01-02"))

		tables, err := c.get(path, query)
		if err != nil {
			c.log.Debug().Err(err).Str("board", board).Str("secid", secid).Msg("Daily history request failed")
			continue
		}

		series := decodeDailySeries(tables["history"])
		if len(series) > 0 {
			return series
		}
	}

	return nil
}

// IntradayHistory fetches candle closes at the requested interval (1, 10 or
// 60 minutes) over the last `hours` hours, capped at 72. Points older than
// now-hours are dropped even when the venue returns a wider window.
func (c *Client) IntradayHistory(ticker string, intervalMinutes, hours int) []IntradayPrice {
	if !validIntervals[intervalMinutes] {
		c.log.Warn().Int("interval", intervalMinutes).Msg("Unsupported candle interval")
		return nil
	}
	if hours <= 0 {
		return nil
	}
	if hours > maxIntradayHours {
		hours = maxIntradayHours
	}

	secid := Normalize(ticker)
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	for _, board := range c.candidateBoards(secid, TypeShare) {
		path := "/engines/stock/markets/shares/boards/" + url.PathEscape(board) +
			"/securities/" + url.PathEscape(secid) + "/candles.json"

		query := url.Values{}
		query.Set("interval", strconv.Itoa(intervalMinutes))
		query.Set("from", cutoff.Format("2006-01-02 15:04:05"))
		query.Set("candles.columns", "begin,close")

		tables, err := c.get(path, query)
		if err != nil {
			c.log.Debug().Err(err).Str("board", board).Str("secid", secid).Msg("Candle request failed")
			continue
		}

		series := decodeCandleSeries(tables["candles"], cutoff)
		if len(series) > 0 {
			return series
		}
	}

	return nil
}

// decodeDailySeries converts a history block to an ordered close series,
// skipping rows with unusable dates or prices.
func decodeDailySeries(history Table) []DailyPrice {
	var series []DailyPrice
	for i := 0; i < history.Len(); i++ {
		row := history.Row(i)

		dateStr, ok := row.String("TRADEDATE")
		if !ok {
			continue
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		price, ok := row.PositiveFloat("CLOSE")
		if !ok {
			continue
		}

		series = append(series, DailyPrice{Date: date, Price: price})
	}
	return series
}

// decodeCandleSeries converts a candles block to an ordered close series,
// dropping points earlier than the cutoff.
func decodeCandleSeries(candles Table, cutoff time.Time) []IntradayPrice {
	var series []IntradayPrice
	for i := 0; i < candles.Len(); i++ {
		row := candles.Row(i)

		beginStr, ok := row.String("begin")
		if !ok {
			continue
		}
		begin, err := time.ParseInLocation("2006-01-02 15:04:05", beginStr, time.Local)
		if err != nil {
			continue
		}
		if begin.Before(cutoff) {
			continue
		}

		price, ok := row.PositiveFloat("close")
		if !ok {
			continue
		}

		series = append(series, IntradayPrice{Time: begin, Price: price})
	}
	return series
}
