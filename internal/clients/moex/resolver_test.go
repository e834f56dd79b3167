package moex

import (
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeISS serves board discovery, live marketdata and daily history for a
// scripted set of boards, recording every request path.
type fakeISS struct {
	mu       sync.Mutex
	paths    []string
	boards   []string                    // board discovery response
	live     map[string]issTestBlock     // board -> marketdata block
	history  map[string][][]interface{}  // board -> TRADEDATE,CLOSE rows
	statuses map[string]int              // path substring -> forced status
}

func (f *fakeISS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	for substr, status := range f.statuses {
		if strings.Contains(r.URL.Path, substr) {
			w.WriteHeader(status)
			return
		}
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/securities/"):
		rows := make([][]interface{}, 0, len(f.boards))
		for _, b := range f.boards {
			rows = append(rows, []interface{}{b})
		}
		writeISS(w, map[string]issTestBlock{
			"boards": {columns: []string{"boardid"}, rows: rows},
		})

	case strings.HasPrefix(r.URL.Path, "/history/"):
		board := pathSegment(r.URL.Path, "boards")
		writeISS(w, map[string]issTestBlock{
			"history": {columns: []string{"TRADEDATE", "CLOSE"}, rows: f.history[board]},
		})

	case strings.Contains(r.URL.Path, "/boards/"):
		board := pathSegment(r.URL.Path, "boards")
		block, ok := f.live[board]
		if !ok {
			block = issTestBlock{columns: []string{"LAST"}, rows: nil}
		}
		writeISS(w, map[string]issTestBlock{"marketdata": block})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// pathSegment returns the path element that follows the named one.
func pathSegment(path, after string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == after && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func (f *fakeISS) requestedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.paths...)
}

func TestResolvePrice_FieldPriorityChain(t *testing.T) {
	// LAST is unusable (0), CLOSEPRICE must win over OPEN.
	iss := &fakeISS{
		boards: []string{"TQBR"},
		live: map[string]issTestBlock{
			"TQBR": {
				columns: []string{"LAST", "CLOSEPRICE", "OPEN"},
				rows:    [][]interface{}{{0.0, 50.0, 40.0}},
			},
		},
	}
	client, _ := newTestClient(t, iss)

	price, ok := client.ResolvePrice("SBER", TypeShare, 0)
	require.True(t, ok)
	assert.Equal(t, 50.0, price)
}

func TestResolvePrice_BondPercentOfFace(t *testing.T) {
	iss := &fakeISS{
		boards: []string{"TQCB"},
		live: map[string]issTestBlock{
			"TQCB": {
				columns: []string{"LAST"},
				rows:    [][]interface{}{{101.5}},
			},
		},
	}
	client, _ := newTestClient(t, iss)

	price, ok := client.ResolvePrice("RU000A0JX0J2", TypeBond, 1000)
	require.True(t, ok)
	assert.InDelta(t, 1015.0, price, 1e-9)
}

func TestResolvePrice_BondWithoutFaceValueIsUnavailable(t *testing.T) {
	iss := &fakeISS{
		boards: []string{"TQCB"},
		live: map[string]issTestBlock{
			"TQCB": {
				columns: []string{"LAST"},
				rows:    [][]interface{}{{101.5}},
			},
		},
		history: map[string][][]interface{}{
			"TQCB": {{"2026-08-28", 100.2}},
		},
	}
	client, _ := newTestClient(t, iss)

	// The raw percent quote is unusable without a face value, on the live
	// path and on the historical last resort alike.
	_, ok := client.ResolvePrice("RU000A0JX0J2", TypeBond, 0)
	assert.False(t, ok)
}

func TestResolvePrice_AdvancesToNextBoard(t *testing.T) {
	iss := &fakeISS{
		boards: []string{"SMAL", "TQBR"},
		live: map[string]issTestBlock{
			"SMAL": {columns: []string{"LAST"}, rows: [][]interface{}{{nil}}},
			"TQBR": {columns: []string{"LAST"}, rows: [][]interface{}{{281.3}}},
		},
	}
	client, _ := newTestClient(t, iss)

	price, ok := client.ResolvePrice("SBER", TypeShare, 0)
	require.True(t, ok)
	assert.Equal(t, 281.3, price)
}

func TestResolvePrice_BoardErrorIsAMissNotAFailure(t *testing.T) {
	iss := &fakeISS{
		boards: []string{"SMAL", "TQBR"},
		live: map[string]issTestBlock{
			"TQBR": {columns: []string{"LAST"}, rows: [][]interface{}{{281.3}}},
		},
		statuses: map[string]int{"/boards/SMAL/": http.StatusGatewayTimeout},
	}
	client, _ := newTestClient(t, iss)

	price, ok := client.ResolvePrice("SBER", TypeShare, 0)
	require.True(t, ok)
	assert.Equal(t, 281.3, price)
}

func TestResolvePrice_HistoricalCloseIsLastResortPerBoard(t *testing.T) {
	iss := &fakeISS{
		boards: []string{"TQBR"},
		live: map[string]issTestBlock{
			"TQBR": {columns: []string{"LAST", "OPEN"}, rows: [][]interface{}{{nil, nil}}},
		},
		history: map[string][][]interface{}{
			"TQBR": {{"2026-08-28", 123.4}},
		},
	}
	client, _ := newTestClient(t, iss)

	price, ok := client.ResolvePrice("SBER", TypeShare, 0)
	require.True(t, ok)
	assert.Equal(t, 123.4, price)
}

func TestResolvePrice_ExhaustedBoardsSignalUnavailable(t *testing.T) {
	iss := &fakeISS{boards: []string{"TQBR"}}
	client, _ := newTestClient(t, iss)

	price, ok := client.ResolvePrice("SBER", TypeShare, 0)
	assert.False(t, ok)
	assert.Zero(t, price)
}

// A renamed ticker must be normalized before any network call is issued.
func TestResolvePrice_NormalizesBeforeRequesting(t *testing.T) {
	iss := &fakeISS{
		boards: []string{"TQBR"},
		live: map[string]issTestBlock{
			"TQBR": {columns: []string{"LAST"}, rows: [][]interface{}{{4100.0}}},
		},
	}
	client, _ := newTestClient(t, iss)

	price, ok := client.ResolvePrice("YNDX", TypeShare, 0)
	require.True(t, ok)
	assert.Equal(t, 4100.0, price)

	for _, path := range iss.requestedPaths() {
		assert.NotContains(t, path, "YNDX", "no request may carry the retired identifier")
	}
	assert.Contains(t, iss.requestedPaths()[0], "YDEX")
}
