package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/mods"
)

// lastBucketSlack widens the top bucket so the observed maximum falls inside.
const lastBucketSlack = 1.01

// AnalyzeDistribution builds a price histogram of a base type. The range
// comes from averaging the cheapest and the most expensive listings; a
// missing end of the range yields a report without buckets.
func (a *Analyzer) AnalyzeDistribution(ctx context.Context, baseType string, buckets int, rules []model.ExclusionRule) (model.DistributionReport, error) {
	do := a.opts.Distribution
	if buckets <= 0 {
		buckets = do.Buckets
	}
	ex := mods.CompileExclusions(rules)
	q := BaseQuery(baseType, do.Rarity)

	report := model.DistributionReport{BaseType: baseType, CreatedAt: time.Now().UTC()}

	extreme := SampleParams{Exclusions: ex, TargetCount: do.ExtremeSamples, MaxToInspect: do.ExtremeInspect}
	low, err := a.Sample(ctx, WithSort(q, "asc"), extreme)
	if err != nil {
		return model.DistributionReport{}, fmt.Errorf("low end: %w", err)
	}
	high, err := a.Sample(ctx, WithSort(q, "desc"), extreme)
	if err != nil {
		return model.DistributionReport{}, fmt.Errorf("high end: %w", err)
	}

	report.MinPrice = round2(low.Average)
	report.MaxPrice = round2(high.Average)
	if !low.Sufficient() || !high.Sufficient() {
		a.logger.Info("distribution range unavailable", slog.String("base_type", baseType))
		return report, nil
	}

	lo, hi := low.Average, high.Average
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		buckets = 1
	}

	for i, r := range BucketRanges(lo, hi, buckets) {
		if i > 0 {
			if err := a.pause(ctx, do.BucketDelay); err != nil {
				return model.DistributionReport{}, err
			}
		}

		bq := WithPriceRange(q, r[0], r[1], model.CommonCurrency)
		s, err := a.Sample(ctx, bq, SampleParams{
			Exclusions:   ex,
			TargetCount:  do.BucketSamples,
			MaxToInspect: do.BucketInspect,
		})
		if err != nil {
			return model.DistributionReport{}, fmt.Errorf("bucket %d: %w", i, err)
		}

		report.Buckets = append(report.Buckets, model.PriceBucket{
			Min:        round2(r[0]),
			Max:        round2(r[1]),
			Count:      s.Total,
			AvgPrice:   round2(s.Average),
			QueryID:    s.QueryID,
			Attributes: s.Attributes,
		})
	}

	a.logger.Info("distribution analysis complete",
		slog.String("base_type", baseType),
		slog.Float64("min", report.MinPrice),
		slog.Float64("max", report.MaxPrice),
		slog.Int("buckets", len(report.Buckets)))
	return report, nil
}

// BucketRanges splits [lo, hi] into n equal-width [min, max] ranges, the
// last one widened so hi is included.
func BucketRanges(lo, hi float64, n int) [][2]float64 {
	if n <= 0 {
		return nil
	}
	width := (hi - lo) / float64(n)
	out := make([][2]float64, n)
	for i := range out {
		out[i] = [2]float64{lo + float64(i)*width, lo + float64(i+1)*width}
	}
	out[n-1][1] = hi * lastBucketSlack
	return out
}
