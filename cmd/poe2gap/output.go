package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/guarzo/poe2gradegap/internal/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printGap(w io.Writer, r model.GapReport) {
	fmt.Fprintf(w, "Base type:   %s\n", r.BaseType)
	fmt.Fprintf(w, "Normal:      %.2f ex\n", r.NormalAvg)
	fmt.Fprintf(w, "Crafting:    %.2f ex\n", r.CraftingAvg)
	fmt.Fprintf(w, "Best tier:   %.2f ex (floor %.2f)\n", r.BestTierAvg, r.BestTierFloor)
	fmt.Fprintf(w, "Gap:         %.2f ex\n", r.Gap)
	if len(r.BestTierModifiers) > 0 {
		fmt.Fprintln(w, "Best-tier modifiers:")
		for _, m := range r.BestTierModifiers {
			fmt.Fprintf(w, "  [%s] %s\n", m.Tier, displayText(m))
		}
	}
}

func printDistribution(w io.Writer, r model.DistributionReport) {
	fmt.Fprintf(w, "Base type: %s\n", r.BaseType)
	if len(r.Buckets) == 0 {
		fmt.Fprintln(w, "Not enough listings to build a distribution.")
		return
	}
	fmt.Fprintf(w, "Range:     %.2f - %.2f ex\n", r.MinPrice, r.MaxPrice)
	for i, b := range r.Buckets {
		names := make([]string, 0, 3)
		for j, a := range b.Attributes {
			if j == 3 {
				break
			}
			names = append(names, a.Name)
		}
		fmt.Fprintf(w, "%3d  %10.2f - %-10.2f %6d listings  avg %8.2f  %s\n",
			i+1, b.Min, b.Max, b.Count, b.AvgPrice, strings.Join(names, ", "))
	}
}

func displayText(m model.ModifierDescriptor) string {
	if m.DisplayText != "" {
		return m.DisplayText
	}
	return m.Name
}
