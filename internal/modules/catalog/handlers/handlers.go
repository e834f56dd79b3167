// Package handlers provides HTTP handlers for the instrument catalog.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/investbot/investbot/internal/clientdata"
	"github.com/investbot/investbot/internal/clients/moex"
	"github.com/investbot/investbot/internal/modules/catalog"
)

// MarketData is the slice of the exchange client the handlers use.
type MarketData interface {
	ResolveMany(tickers []string, wantMetrics bool) map[string]moex.Metrics
	DailyHistory(ticker string, days int) []moex.DailyPrice
	IntradayHistory(ticker string, intervalMinutes, hours int) []moex.IntradayPrice
}

// Handler handles catalog HTTP requests.
type Handler struct {
	repo   *catalog.Repository
	market MarketData
	cache  *clientdata.Repository
	log    zerolog.Logger
}

// NewHandler creates a new catalog handler.
func NewHandler(repo *catalog.Repository, market MarketData, cache *clientdata.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		market: market,
		cache:  cache,
		log:    log.With().Str("handler", "catalog").Logger(),
	}
}

// HandleList handles GET /api/instruments?kind=share|bond
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = catalog.KindShare
	}
	if kind != catalog.KindShare && kind != catalog.KindBond {
		http.Error(w, "kind must be share or bond", http.StatusBadRequest)
		return
	}

	instruments, err := h.repo.List(kind)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list instruments")
		http.Error(w, "Failed to list instruments", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"instruments": instruments,
		"count":       len(instruments),
	})
}

// HandleSearch handles GET /api/instruments/search?q=...
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "q parameter is required", http.StatusBadRequest)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	instruments, err := h.repo.Search(q, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to search instruments")
		http.Error(w, "Failed to search instruments", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"instruments": instruments,
		"count":       len(instruments),
	})
}

// HandleGet handles GET /api/instruments/{ticker}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, ticker string) {
	inst, err := h.repo.GetByTicker(ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to load instrument")
		http.Error(w, "Failed to load instrument", http.StatusInternalServerError)
		return
	}
	if inst == nil {
		http.Error(w, "Instrument not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, inst)
}

// quote is the cached live-quote payload.
type quote struct {
	Ticker    string   `json:"ticker" msgpack:"ticker"`
	Price     float64  `json:"price" msgpack:"price"`
	Turnover  *float64 `json:"turnover,omitempty" msgpack:"turnover"`
	Volume    *float64 `json:"volume,omitempty" msgpack:"volume"`
	ChangePct *float64 `json:"change_pct,omitempty" msgpack:"change_pct"`
	FetchedAt int64    `json:"fetched_at" msgpack:"fetched_at"`
}

// HandleQuote handles GET /api/instruments/{ticker}/quote. The quote is
// served from cache when fresh; on a venue miss the last cached quote is
// returned marked stale rather than failing the request.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request, ticker string) {
	secid := moex.Normalize(ticker)

	var cached quote
	fresh, err := h.cache.LoadIfFresh("quote_cache", secid, &cached)
	if err != nil {
		h.log.Warn().Err(err).Str("ticker", secid).Msg("Quote cache read failed")
	}
	if fresh {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"quote": cached, "stale": false})
		return
	}

	if m, ok := h.market.ResolveMany([]string{secid}, true)[secid]; ok {
		q := quote{
			Ticker:    secid,
			Price:     m.Price,
			Turnover:  m.Turnover,
			Volume:    m.Volume,
			ChangePct: m.ChangePct,
			FetchedAt: time.Now().Unix(),
		}
		if err := h.cache.Store("quote_cache", secid, q, clientdata.TTLQuote); err != nil {
			h.log.Warn().Err(err).Str("ticker", secid).Msg("Quote cache write failed")
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"quote": q, "stale": false})
		return
	}

	// Venue miss: fall back to the last cached quote regardless of age.
	found, err := h.cache.Load("quote_cache", secid, &cached)
	if err != nil {
		h.log.Warn().Err(err).Str("ticker", secid).Msg("Quote cache read failed")
	}
	if found {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"quote": cached, "stale": true})
		return
	}

	http.Error(w, "Quote unavailable", http.StatusNotFound)
}

// HandleDailyHistory handles GET /api/instruments/{ticker}/history/daily?days=30
func (h *Handler) HandleDailyHistory(w http.ResponseWriter, r *http.Request, ticker string) {
	days := 30
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	secid := moex.Normalize(ticker)
	key := fmt.Sprintf("%s:daily:%d", secid, days)

	var series []moex.DailyPrice
	fresh, err := h.cache.LoadIfFresh("history_cache", key, &series)
	if err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("History cache read failed")
	}

	if !fresh {
		series = h.market.DailyHistory(secid, days)
		if len(series) > 0 {
			if err := h.cache.Store("history_cache", key, series, clientdata.TTLDailyHistory); err != nil {
				h.log.Warn().Err(err).Str("key", key).Msg("History cache write failed")
			}
		} else if found, _ := h.cache.Load("history_cache", key, &series); !found {
			http.Error(w, "History unavailable", http.StatusNotFound)
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": secid,
		"days":   days,
		"prices": series,
	})
}

// HandleIntradayHistory handles
// GET /api/instruments/{ticker}/history/intraday?interval=10&hours=24
func (h *Handler) HandleIntradayHistory(w http.ResponseWriter, r *http.Request, ticker string) {
	interval := 10
	if intervalStr := r.URL.Query().Get("interval"); intervalStr != "" {
		parsed, err := strconv.Atoi(intervalStr)
		if err != nil {
			http.Error(w, "interval must be an integer", http.StatusBadRequest)
			return
		}
		interval = parsed
	}

	hours := 24
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		parsed, err := strconv.Atoi(hoursStr)
		if err != nil || parsed <= 0 {
			http.Error(w, "hours must be a positive integer", http.StatusBadRequest)
			return
		}
		hours = parsed
	}

	secid := moex.Normalize(ticker)
	key := fmt.Sprintf("%s:intraday:%d:%d", secid, interval, hours)

	var series []moex.IntradayPrice
	fresh, err := h.cache.LoadIfFresh("history_cache", key, &series)
	if err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("History cache read failed")
	}

	if !fresh {
		series = h.market.IntradayHistory(secid, interval, hours)
		if len(series) > 0 {
			if err := h.cache.Store("history_cache", key, series, clientdata.TTLIntradayHistory); err != nil {
				h.log.Warn().Err(err).Str("key", key).Msg("History cache write failed")
			}
		} else if found, _ := h.cache.Load("history_cache", key, &series); !found {
			http.Error(w, "History unavailable", http.StatusNotFound)
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":   secid,
		"interval": interval,
		"hours":    hours,
		"prices":   series,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
