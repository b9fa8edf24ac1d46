// Package currency converts listing prices into the common unit (exalted).
package currency

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/guarzo/poe2gradegap/internal/cache"
)

// DefaultRates are the built-in exchange rates, in exalted per unit.
var DefaultRates = map[string]float64{
	"exalted":          1.0,
	"divine":           320.0,
	"chaos":            7.8,
	"alch":             3.9,
	"gcp":              15.6,
	"regal":            7.8,
	"vaal":             11.7,
	"fusing":           7.8,
	"chrom":            3.9,
	"jewellers":        3.9,
	"fossil_primitive": 78.0,
	"fossil_pristine":  117.0,
	"scouring":         3.9,
	"regret":           7.8,
	"blessed":          39.0,
	"mirror":           1500000.0,
}

// Table is an immutable rate snapshot. Analyses hold one Table for their
// whole run, so a concurrent rate update never changes a run midway.
type Table struct {
	rates map[string]float64
}

// New builds a table from code -> exalted rates. Codes are lower-cased and
// non-positive rates dropped.
func New(rates map[string]float64) *Table {
	t := &Table{rates: make(map[string]float64, len(rates))}
	for code, rate := range rates {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" || rate <= 0 {
			continue
		}
		t.rates[code] = rate
	}
	return t
}

// Default returns a table of DefaultRates.
func Default() *Table {
	return New(DefaultRates)
}

// WithRates returns a new table with overrides applied on top of t.
func (t *Table) WithRates(overrides map[string]float64) *Table {
	merged := t.Rates()
	for code, rate := range overrides {
		merged[strings.ToLower(strings.TrimSpace(code))] = rate
	}
	return New(merged)
}

// Normalize converts amount of code into exalted. Unknown or empty codes
// yield 0.
func (t *Table) Normalize(amount float64, code string) float64 {
	rate, ok := t.Rate(code)
	if !ok {
		return 0
	}
	return amount * rate
}

// Rate looks up a code case-insensitively.
func (t *Table) Rate(code string) (float64, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return 0, false
	}
	rate, ok := t.rates[code]
	return rate, ok
}

// Rates returns a copy of the table.
func (t *Table) Rates() map[string]float64 {
	out := make(map[string]float64, len(t.rates))
	for k, v := range t.rates {
		out[k] = v
	}
	return out
}

// Codes returns the known currency codes, sorted.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for k := range t.rates {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

// Load returns the rates persisted for league, or the defaults when the
// cache holds none (or they expired).
func Load(c *cache.Cache, league string) (*Table, error) {
	var rates map[string]float64
	found, err := c.Get(cache.RatesKey(league), &rates)
	if err != nil {
		return nil, fmt.Errorf("loading rates: %w", err)
	}
	if !found || len(rates) == 0 {
		return Default(), nil
	}
	return New(rates), nil
}

// Save persists t for league.
func Save(c *cache.Cache, league string, t *Table, ttl time.Duration) error {
	if err := c.Put(cache.RatesKey(league), t.Rates(), ttl); err != nil {
		return fmt.Errorf("saving rates: %w", err)
	}
	return nil
}

// LoadFile reads a JSON object mapping currency code to exalted rate.
func LoadFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rates file: %w", err)
	}
	var rates map[string]float64
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, fmt.Errorf("parsing rates file: %w", err)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("rates file %s is empty", path)
	}
	return rates, nil
}
