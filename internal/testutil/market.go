package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/guarzo/poe2gradegap/internal/model"
)

// SearchFunc picks the listing ids a search returns.
type SearchFunc func(q model.SearchQuery) []string

// MarketServer is an in-process stand-in for the trade search and fetch
// endpoints.
type MarketServer struct {
	*httptest.Server

	mu       sync.Mutex
	listings map[string]map[string]any
	order    []string
	search   SearchFunc
	queries  []model.SearchQuery
	fetches  int
}

// NewMarketServer starts a server that is closed when the test ends. By
// default every search returns all listings in insertion order.
func NewMarketServer(t testing.TB) *MarketServer {
	t.Helper()
	m := &MarketServer{listings: make(map[string]map[string]any)}
	mux := http.NewServeMux()
	mux.HandleFunc("/search/", m.handleSearch)
	mux.HandleFunc("/fetch/", m.handleFetch)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

// Add registers listings.
func (m *MarketServer) Add(builders ...*ListingBuilder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range builders {
		if _, ok := m.listings[b.ID()]; !ok {
			m.order = append(m.order, b.ID())
		}
		m.listings[b.ID()] = b.Raw()
	}
}

// OnSearch overrides search routing.
func (m *MarketServer) OnSearch(fn SearchFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.search = fn
}

// Queries returns every query received, sort included.
func (m *MarketServer) Queries() []model.SearchQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SearchQuery(nil), m.queries...)
}

// Fetches is the number of fetch calls served.
func (m *MarketServer) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func (m *MarketServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query model.SearchQuery `json:"query"`
		Sort  any               `json:"sort"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":{"message":"bad query"}}`, http.StatusBadRequest)
		return
	}
	q := body.Query
	if q == nil {
		q = model.SearchQuery{}
	}
	q["sort"] = body.Sort

	m.mu.Lock()
	m.queries = append(m.queries, q)
	queryID := fmt.Sprintf("q%d", len(m.queries))
	fn := m.search
	ids := append([]string(nil), m.order...)
	m.mu.Unlock()

	if fn != nil {
		ids = fn(q)
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, map[string]any{"id": queryID, "result": ids, "total": len(ids)})
}

func (m *MarketServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(strings.TrimPrefix(r.URL.Path, "/fetch/"), ",")

	m.mu.Lock()
	m.fetches++
	result := make([]any, 0, len(ids))
	for _, id := range ids {
		if doc, ok := m.listings[id]; ok {
			result = append(result, doc)
		} else {
			result = append(result, nil)
		}
	}
	m.mu.Unlock()

	writeJSON(w, map[string]any{"result": result})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
