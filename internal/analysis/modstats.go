package analysis

import (
	"context"
	"fmt"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/stats"
)

// DefaultStatsLimit caps how many listings a statistics run fetches.
const DefaultStatsLimit = 100

// StatsRun is the result of ModifierStats.
type StatsRun struct {
	QueryID string       `json:"search_id"`
	Total   int          `json:"total"`
	Fetched int          `json:"fetched"`
	Report  stats.Report `json:"stats"`
}

// ModifierStats searches q and aggregates modifier frequencies over up to
// limit listings.
func (a *Analyzer) ModifierStats(ctx context.Context, q model.SearchQuery, limit int) (StatsRun, error) {
	if limit <= 0 {
		limit = DefaultStatsLimit
	}

	res, err := a.market.Search(ctx, q)
	if err != nil {
		return StatsRun{}, fmt.Errorf("searching: %w", err)
	}

	run := StatsRun{QueryID: res.QueryID, Total: res.Total}
	agg := stats.NewAggregator()
	n := min(len(res.IDs), limit)

	for start := 0; start < n; start += a.opts.BatchSize {
		if start > 0 {
			if err := a.pause(ctx, a.opts.BatchDelay); err != nil {
				return StatsRun{}, err
			}
		}
		end := min(start+a.opts.BatchSize, n)
		listings, err := a.market.Fetch(ctx, res.IDs[start:end], res.QueryID)
		if err != nil {
			return StatsRun{}, fmt.Errorf("fetching listings: %w", err)
		}
		for _, l := range listings {
			agg.AddListing(l)
			run.Fetched++
		}
	}

	run.Report = agg.Report()
	return run, nil
}
