package analysis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/guarzo/poe2gradegap/internal/currency"
	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/testutil"
)

// fakeMarket serves listings from memory.
type fakeMarket struct {
	mu       sync.Mutex
	order    []string
	listings map[string]model.Listing
	route    func(q model.SearchQuery) []string
	queries  []model.SearchQuery
	fetches  [][]string
	fetchErr error
}

func newFakeMarket(builders ...*testutil.ListingBuilder) *fakeMarket {
	m := &fakeMarket{listings: make(map[string]model.Listing)}
	m.add(builders...)
	return m
}

func (m *fakeMarket) add(builders ...*testutil.ListingBuilder) {
	for _, b := range builders {
		m.order = append(m.order, b.ID())
		m.listings[b.ID()] = b.Build()
	}
}

func (m *fakeMarket) Search(_ context.Context, q model.SearchQuery) (model.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q.Clone())

	ids := append([]string(nil), m.order...)
	if m.route != nil {
		ids = m.route(q)
	}
	return model.SearchResult{IDs: ids, QueryID: "q" + strconv.Itoa(len(m.queries)), Total: len(ids)}, nil
}

func (m *fakeMarket) Fetch(_ context.Context, ids []string, _ string) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	m.fetches = append(m.fetches, append([]string(nil), ids...))
	out := make([]model.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := m.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *fakeMarket) price(id string) float64 {
	p, _ := m.listings[id].Price()
	return p.Amount
}

// byPrice routes searches by the price filter and sort of the query.
func (m *fakeMarket) byPrice(q model.SearchQuery) []string {
	lo, hi := 0.0, 0.0
	if v, ok := q.Lookup("filters", "trade_filters", "filters", "price", "min"); ok {
		lo, _ = v.(float64)
	}
	if v, ok := q.Lookup("filters", "trade_filters", "filters", "price", "max"); ok {
		hi, _ = v.(float64)
	}

	var ids []string
	for _, id := range m.order {
		p := m.price(id)
		if p < lo || (hi > 0 && p >= hi) {
			continue
		}
		ids = append(ids, id)
	}
	if dir, ok := q.Lookup("sort", "price"); ok && dir == "desc" {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	return ids
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func (r *sleepRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waits)
}

func testOptions(rec *sleepRecorder) Options {
	opts := DefaultOptions()
	opts.Sleep = rec.sleep
	return opts
}

func newTestAnalyzer(m Marketplace, rec *sleepRecorder) *Analyzer {
	return New(m, currency.Default(), testOptions(rec))
}

// priced returns a normal listing with no modifiers.
func priced(id string, amount float64) *testutil.ListingBuilder {
	return testutil.NewListing(id).Price(amount, "exalted")
}

// bestTier returns a magic listing with a P1 prefix and S1 suffix.
func bestTier(id string, amount float64) *testutil.ListingBuilder {
	return testutil.NewListing(id).
		Rarity("Magic").
		Price(amount, "exalted").
		Mod(model.GroupExplicit, "Glinting", "P1", 10, 20).
		Mod(model.GroupExplicit, "of the Fox", "S1", 5, 8)
}
