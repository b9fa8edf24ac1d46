// Package analysis locates quality-filtered price samples on the trade
// market and combines them into gap and distribution reports.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/guarzo/poe2gradegap/internal/logging"
	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/mods"
)

// Marketplace is the search/fetch surface of the trade API.
type Marketplace interface {
	Search(ctx context.Context, q model.SearchQuery) (model.SearchResult, error)
	Fetch(ctx context.Context, ids []string, queryID string) ([]model.Listing, error)
}

// Normalizer converts a price into the common currency; unknown codes
// yield 0.
type Normalizer interface {
	Normalize(amount float64, currency string) float64
}

// Analyzer runs analyses against one marketplace and rate snapshot. It holds
// no per-run state and may be shared by concurrent runs.
type Analyzer struct {
	market     Marketplace
	normalizer Normalizer
	extractor  mods.Extractor
	opts       Options
	logger     *slog.Logger
}

// New creates an Analyzer.
func New(market Marketplace, normalizer Normalizer, opts Options) *Analyzer {
	opts = opts.withDefaults()
	return &Analyzer{
		market:     market,
		normalizer: normalizer,
		extractor:  mods.Extractor{Strategy: opts.MatchStrategy},
		opts:       opts,
		logger:     logging.OrNew(opts.Logger, "analysis"),
	}
}

// WithNormalizer returns a copy bound to another rate snapshot.
func (a *Analyzer) WithNormalizer(n Normalizer) *Analyzer {
	cp := *a
	cp.normalizer = n
	return &cp
}

// Options returns the effective options.
func (a *Analyzer) Options() Options {
	return a.opts
}

func (a *Analyzer) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return a.opts.Sleep(ctx, d)
}
