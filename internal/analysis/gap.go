package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/mods"
)

// AnalyzeGap compares the plain, crafting-grade and best-tier averages of a
// base type. Rules are applied as one snapshot for the whole run.
func (a *Analyzer) AnalyzeGap(ctx context.Context, baseType string, rules []model.ExclusionRule) (model.GapReport, error) {
	ex := mods.CompileExclusions(rules)
	report := model.GapReport{BaseType: baseType, CreatedAt: time.Now().UTC()}

	baseline := SampleParams{
		Exclusions:   ex,
		TargetCount:  a.opts.TargetCount,
		MaxToInspect: a.opts.MaxToInspect,
	}

	normal, err := a.Sample(ctx, BaseQuery(baseType, "normal"), baseline)
	if err != nil {
		return model.GapReport{}, fmt.Errorf("normal sample: %w", err)
	}
	report.NormalAvg = round2(normal.Average)
	report.NormalQueryID = normal.QueryID
	report.NormalModifiers = normal.Modifiers

	crafting, err := a.Sample(ctx, CraftingQuery(baseType, a.opts.Crafting), baseline)
	if err != nil {
		return model.GapReport{}, fmt.Errorf("crafting sample: %w", err)
	}
	report.CraftingAvg = round2(crafting.Average)
	report.CraftingQueryID = crafting.QueryID
	report.CraftingModifiers = crafting.Modifiers

	// The ramp only needs a starting point, so a missing crafting sample
	// falls back to the plain average there. The gap itself does not.
	base := crafting.Average
	if base <= 0 {
		base = normal.Average
	}

	ramp, err := a.Ramp(ctx, BaseQuery(baseType, a.opts.Ramp.Rarity), base, ex)
	if err != nil {
		return model.GapReport{}, fmt.Errorf("best-tier ramp: %w", err)
	}
	report.BestTierAvg = round2(ramp.Average)
	report.BestTierModifiers = ramp.Modifiers
	report.BestTierFloor = ramp.Floor
	report.BestTierQueryID = ramp.QueryID
	if report.BestTierQueryID == "" && len(ramp.Attempts) > 0 {
		report.BestTierQueryID = ramp.Attempts[len(ramp.Attempts)-1].QueryID
	}

	if ramp.Average > 0 && crafting.Average > 0 {
		report.Gap = round2(ramp.Average - crafting.Average)
	}

	a.logger.Info("gap analysis complete",
		slog.String("base_type", baseType),
		slog.Float64("normal", report.NormalAvg),
		slog.Float64("crafting", report.CraftingAvg),
		slog.Float64("best_tier", report.BestTierAvg),
		slog.Float64("gap", report.Gap))
	return report, nil
}
