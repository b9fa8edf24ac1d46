package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/mods"
)

// SampleParams controls one sampling pass over a search result.
type SampleParams struct {
	// Validator filters listings for pricing; nil accepts all.
	Validator  Validator
	Exclusions *mods.Exclusions

	// MinModifierCount counts explicit, fractured and desecrated modifiers
	// left after exclusions.
	MinModifierCount int
	TargetCount      int
	MaxToInspect     int
}

// Sample is the outcome of a sampling pass. Average is 0 whenever fewer
// than the target number of priced listings were found.
type Sample struct {
	Average    float64
	Modifiers  []model.ModifierDescriptor
	Attributes []model.Attribute
	Samples    int
	Inspected  int
	QueryID    string
	Total      int
}

// Sufficient reports whether the sample carries a usable average.
func (s Sample) Sufficient() bool {
	return s.Average > 0
}

// SampleResult fetches the listings of res in batches and averages the
// prices of qualifying ones, stopping once p.TargetCount prices are
// collected or p.MaxToInspect listings were looked at.
func (a *Analyzer) SampleResult(ctx context.Context, res model.SearchResult, p SampleParams) (Sample, error) {
	if p.TargetCount <= 0 {
		p.TargetCount = a.opts.TargetCount
	}
	if p.MaxToInspect <= 0 {
		p.MaxToInspect = a.opts.MaxToInspect
	}
	qualifier, _ := p.Validator.(TierQualifier)

	out := Sample{QueryID: res.QueryID, Total: res.Total}
	limit := min(len(res.IDs), p.MaxToInspect)

	var (
		prices    []float64
		collected []model.ModifierDescriptor
		attrs     = make(map[attributeKey]int)
	)

	for start := 0; start < limit && len(prices) < p.TargetCount; start += a.opts.BatchSize {
		if start > 0 {
			if err := a.pause(ctx, a.opts.BatchDelay); err != nil {
				return Sample{}, err
			}
		}

		end := min(start+a.opts.BatchSize, limit)
		listings, err := a.market.Fetch(ctx, res.IDs[start:end], res.QueryID)
		if err != nil {
			return Sample{}, fmt.Errorf("fetching listings: %w", err)
		}

		for _, l := range listings {
			if len(prices) >= p.TargetCount {
				break
			}
			out.Inspected++

			all := a.extractor.Extract(l)
			kept := p.Exclusions.Filter(all)
			if len(all) > 0 && len(kept) == 0 {
				a.logger.Debug("skipping listing, all modifiers excluded", slog.String("id", l.ID))
				continue
			}
			if n := countAffixes(kept); n < p.MinModifierCount {
				a.logger.Debug("skipping listing, too few modifiers",
					slog.String("id", l.ID), slog.Int("modifiers", n))
				continue
			}

			seen := make(map[attributeKey]bool)
			for _, d := range kept {
				if qualifier != nil && !qualifier.QualifiesTier(d.Tier) {
					continue
				}
				collected = append(collected, d)
				k := attributeKey{d.Name, d.Group}
				if !seen[k] {
					seen[k] = true
					attrs[k]++
				}
			}

			if p.Validator != nil && !p.Validator.IsBestTier(l) {
				continue
			}

			price, ok := l.Price()
			if !ok {
				continue
			}
			v := SanitizePrice(a.normalizer.Normalize(price.Amount, price.Currency), l.Rarity(), a.opts.Sanitize)
			if v <= 0 {
				continue
			}
			prices = append(prices, v)
		}
	}

	out.Samples = len(prices)
	if len(prices) < p.TargetCount {
		a.logger.Debug("insufficient sample",
			slog.Int("samples", len(prices)),
			slog.Int("target", p.TargetCount),
			slog.Int("inspected", out.Inspected))
		return out, nil
	}

	var sum float64
	for _, v := range prices {
		sum += v
	}
	out.Average = sum / float64(len(prices))
	out.Modifiers = mods.Dedupe(collected)
	out.Attributes = sortedAttributes(attrs)
	return out, nil
}

// Sample runs a search and samples its result.
func (a *Analyzer) Sample(ctx context.Context, q model.SearchQuery, p SampleParams) (Sample, error) {
	res, err := a.market.Search(ctx, q)
	if err != nil {
		return Sample{}, fmt.Errorf("searching: %w", err)
	}
	return a.SampleResult(ctx, res, p)
}

func countAffixes(ds []model.ModifierDescriptor) int {
	n := 0
	for _, d := range ds {
		switch d.Group {
		case model.GroupExplicit, model.GroupFractured, model.GroupDesecrated:
			n++
		}
	}
	return n
}

type attributeKey struct {
	name  string
	group string
}

func sortedAttributes(counts map[attributeKey]int) []model.Attribute {
	if len(counts) == 0 {
		return nil
	}
	out := make([]model.Attribute, 0, len(counts))
	for k, n := range counts {
		out = append(out, model.Attribute{Name: k.name, Group: k.group, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Group < out[j].Group
	})
	return out
}
