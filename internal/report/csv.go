// Package report exports analysis results as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/guarzo/poe2gradegap/internal/model"
)

var gapHeader = []string{
	"base_type", "created_at", "normal_avg_ex", "crafting_avg_ex", "best_tier_avg_ex",
	"gap_ex", "best_tier_floor_ex", "best_tier_modifiers", "search_id", "best_tier_search_id",
}

var distributionHeader = []string{
	"base_type", "bucket", "min_price_ex", "max_price_ex", "count", "avg_price_ex", "top_attributes", "search_id",
}

// WriteGaps writes one row per gap report.
func WriteGaps(w io.Writer, reports []model.GapReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(gapHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range reports {
		row := []string{
			r.BaseType,
			formatTime(r.CreatedAt),
			formatPrice(r.NormalAvg),
			formatPrice(r.CraftingAvg),
			formatPrice(r.BestTierAvg),
			formatPrice(r.Gap),
			formatPrice(r.BestTierFloor),
			modifierSummary(r.BestTierModifiers),
			r.NormalQueryID,
			r.BestTierQueryID,
		}
		if err := cw.Write(EscapeRow(row)); err != nil {
			return fmt.Errorf("writing %s: %w", r.BaseType, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDistributions writes one row per bucket of each report.
func WriteDistributions(w io.Writer, reports []model.DistributionReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(distributionHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range reports {
		for i, b := range r.Buckets {
			row := []string{
				r.BaseType,
				strconv.Itoa(i + 1),
				formatPrice(b.Min),
				formatPrice(b.Max),
				strconv.Itoa(b.Count),
				formatPrice(b.AvgPrice),
				attributeSummary(b.Attributes, 3),
				b.QueryID,
			}
			if err := cw.Write(EscapeRow(row)); err != nil {
				return fmt.Errorf("writing %s bucket %d: %w", r.BaseType, i+1, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGapsFile creates path (and its directory) and writes reports to it.
func WriteGapsFile(path string, reports []model.GapReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := WriteGaps(f, reports); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DefaultFilename names a report written at t.
func DefaultFilename(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, t.Format("20060102_150405"))
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func modifierSummary(mods []model.ModifierDescriptor) string {
	parts := make([]string, 0, len(mods))
	for _, m := range mods {
		text := m.DisplayText
		if text == "" {
			text = m.Name
		}
		if m.Tier != "" {
			text = fmt.Sprintf("%s (%s)", text, m.Tier)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "; ")
}

func attributeSummary(attrs []model.Attribute, n int) string {
	parts := make([]string, 0, n)
	for i, a := range attrs {
		if i == n {
			break
		}
		parts = append(parts, fmt.Sprintf("%s x%d", a.Name, a.Count))
	}
	return strings.Join(parts, "; ")
}
