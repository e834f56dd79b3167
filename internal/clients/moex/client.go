// Package moex provides a client for the Moscow Exchange ISS market-data API.
//
// The same instrument can trade on several boards with independently reported
// prices, instruments are occasionally renamed, and individual requests can
// degrade or partially fail. The client resolves prices by walking an ordered
// board list and an ordered field-priority chain, treating every per-board
// failure as a miss rather than an error.
package moex

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// SecurityType distinguishes the two pricing paths.
type SecurityType string

const (
	// TypeShare prices are quoted directly in currency.
	TypeShare SecurityType = "share"
	// TypeBond prices are quoted as a percent of face value.
	TypeBond SecurityType = "bond"
)

// Market returns the ISS market segment for this security type.
func (t SecurityType) Market() string {
	if t == TypeBond {
		return "bonds"
	}
	return "shares"
}

// Default board lists, tried after discovered boards are exhausted. TQBR is
// the main T+ equities board; TQCB/TQOB cover corporate and government bonds.
var (
	defaultShareBoards = []string{"TQBR", "TQTF"}
	defaultBondBoards  = []string{"TQCB", "TQOB"}
)

// shareFieldChain is the fixed field-priority order for extracting a share
// price from a marketdata row: last trade, last quoted current price, close,
// open, weighted average, alternate market price.
var shareFieldChain = []string{"LAST", "LCURRENTPRICE", "CLOSEPRICE", "OPEN", "WAPRICE", "MARKETPRICE2"}

// bondQuoteField is the single quoted field for bonds, in percent of face.
const bondQuoteField = "LAST"

// Client for the MOEX ISS API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new ISS client. baseURL is optional; the production
// endpoint is used when it is empty.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://iss.moex.com/iss"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "moex-iss").Logger(),
	}
}

// issBlock is one tabular section of an ISS response.
type issBlock struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

// get performs one ISS request and decodes every tabular block by name.
// iss.meta is always disabled; callers narrow the response with iss.only
// and the *.columns parameters.
func (c *Client) get(path string, query url.Values) (map[string]Table, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("iss.meta", "off")

	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "investbot/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ISS returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var raw map[string]issBlock
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	tables := make(map[string]Table, len(raw))
	for name, block := range raw {
		tables[name] = NewTable(block.Columns, block.Data)
	}
	return tables, nil
}

// BoardsFor asks ISS which boards list the given (already normalized)
// identifier, in the order the exchange reports them. It returns an empty
// slice on any failure; callers fall back to the static default board list.
func (c *Client) BoardsFor(secid string) []string {
	query := url.Values{}
	query.Set("iss.only", "boards")
	query.Set("boards.columns", "boardid")

	tables, err := c.get("/securities/"+url.PathEscape(secid)+".json", query)
	if err != nil {
		c.log.Debug().Err(err).Str("secid", secid).Msg("Board discovery failed")
		return nil
	}

	boards, ok := tables["boards"]
	if !ok {
		return nil
	}

	var ids []string
	for i := 0; i < boards.Len(); i++ {
		if id, ok := boards.Row(i).String("boardid"); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// candidateBoards builds the ordered board list for one resolution attempt:
// discovered boards first, then the static defaults, deduplicated.
func (c *Client) candidateBoards(secid string, secType SecurityType) []string {
	discovered := c.BoardsFor(secid)

	defaults := defaultShareBoards
	if secType == TypeBond {
		defaults = defaultBondBoards
	}

	seen := make(map[string]bool, len(discovered)+len(defaults))
	var boards []string
	for _, id := range append(append([]string{}, discovered...), defaults...) {
		if !seen[id] {
			seen[id] = true
			boards = append(boards, id)
		}
	}
	return boards
}
