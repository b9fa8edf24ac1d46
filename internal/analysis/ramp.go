package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/mods"
)

// RampAttempt records one price floor tried by a ramp.
type RampAttempt struct {
	Floor   float64 `json:"floor"`
	QueryID string  `json:"search_id"`
	Total   int     `json:"total"`
	Samples int     `json:"samples"`
	Average float64 `json:"average"`
}

// RampResult is the first sufficient sample of a ramp, or a zero Sample
// when every floor came up short.
type RampResult struct {
	Sample
	Floor    float64
	Attempts []RampAttempt
}

// Floors scales a relative progression so its first step equals
// max(1, 2*baseline). Later steps keep the progression's ratios.
func Floors(baseline float64, progression []float64) []float64 {
	start := max(1, 2*baseline)
	if len(progression) == 0 || progression[0] <= 0 {
		return []float64{start}
	}
	floors := make([]float64, len(progression))
	for i, p := range progression {
		floors[i] = round2(start * p / progression[0])
	}
	return floors
}

// Ramp re-runs q with increasing minimum prices until a sample of best-tier
// listings is found.
func (a *Analyzer) Ramp(ctx context.Context, q model.SearchQuery, baseline float64, ex *mods.Exclusions) (RampResult, error) {
	ro := a.opts.Ramp
	var result RampResult

	for i, floor := range Floors(baseline, ro.Progression) {
		if i > 0 {
			if err := a.pause(ctx, ro.AttemptDelay); err != nil {
				return RampResult{}, err
			}
		}

		attemptQuery := WithPriceRange(q, floor, 0, ro.Currency)
		s, err := a.Sample(ctx, attemptQuery, SampleParams{
			Validator:        BestTier{},
			Exclusions:       ex,
			MinModifierCount: ro.MinModifiers,
			TargetCount:      ro.TargetCount,
			MaxToInspect:     ro.MaxToInspect,
		})
		if err != nil {
			return RampResult{}, fmt.Errorf("ramp floor %.2f: %w", floor, err)
		}

		result.Attempts = append(result.Attempts, RampAttempt{
			Floor:   floor,
			QueryID: s.QueryID,
			Total:   s.Total,
			Samples: s.Samples,
			Average: s.Average,
		})
		a.logger.Debug("ramp attempt",
			slog.Float64("floor", floor),
			slog.Int("total", s.Total),
			slog.Int("samples", s.Samples))

		if s.Sufficient() {
			result.Sample = s
			result.Floor = floor
			return result, nil
		}
	}
	return result, nil
}
