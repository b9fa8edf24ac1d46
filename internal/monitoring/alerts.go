// Package monitoring compares successive gap reports and raises alerts when
// a base type's market moves.
package monitoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/guarzo/poe2gradegap/internal/model"
)

// AlertType represents different kinds of market movement.
type AlertType string

const (
	AlertGapWidened  AlertType = "GAP_WIDENED"
	AlertGapNarrowed AlertType = "GAP_NARROWED"
	AlertNewGap      AlertType = "NEW_GAP"
	AlertGapLost     AlertType = "GAP_LOST"
)

// Alert is one notable change between two reports of a base type.
type Alert struct {
	Type      AlertType
	Severity  string // "HIGH", "MEDIUM", "LOW"
	BaseType  string
	Message   string
	OldGap    float64
	NewGap    float64
	DeltaPct  float64
	Timestamp time.Time
}

// AlertConfig contains alert generation parameters.
type AlertConfig struct {
	ThresholdPct float64 // Minimum relative gap change that alerts
	MinGap       float64 // Gaps below this (exalted) are treated as absent
	MinSeverity  string  // Only keep alerts at or above this severity
}

// AlertEngine turns report pairs into alerts.
type AlertEngine struct {
	config AlertConfig
	now    func() time.Time
}

func NewAlertEngine(config AlertConfig) *AlertEngine {
	return &AlertEngine{config: config, now: time.Now}
}

// Compare pairs each current report with the previous one of the same base
// type. Reports without a predecessor only alert when a gap appears.
func (ae *AlertEngine) Compare(previous, current []model.GapReport) []Alert {
	prev := make(map[string]model.GapReport, len(previous))
	for _, r := range previous {
		prev[r.BaseType] = r
	}

	var alerts []Alert
	for _, cur := range current {
		old, seen := prev[cur.BaseType]
		if a, ok := ae.compareOne(old, cur, seen); ok {
			alerts = append(alerts, a)
		}
	}

	alerts = ae.filterBySeverity(alerts)
	sort.SliceStable(alerts, func(i, j int) bool {
		if ri, rj := severityRank(alerts[i].Severity), severityRank(alerts[j].Severity); ri != rj {
			return ri > rj
		}
		return math.Abs(alerts[i].DeltaPct) > math.Abs(alerts[j].DeltaPct)
	})
	return alerts
}

func (ae *AlertEngine) compareOne(old, cur model.GapReport, seen bool) (Alert, bool) {
	a := Alert{BaseType: cur.BaseType, OldGap: old.Gap, NewGap: cur.Gap, Timestamp: ae.now()}
	hadGap := seen && old.Gap >= ae.config.MinGap && old.Gap > 0
	hasGap := cur.Gap >= ae.config.MinGap && cur.Gap > 0

	switch {
	case !hadGap && hasGap:
		a.Type = AlertNewGap
		a.Severity = "MEDIUM"
		a.Message = fmt.Sprintf("Gap of %.2f ex opened", cur.Gap)
		return a, true
	case hadGap && !hasGap:
		a.Type = AlertGapLost
		a.Severity = "MEDIUM"
		a.Message = fmt.Sprintf("Gap of %.2f ex closed", old.Gap)
		return a, true
	case !hadGap:
		return a, false
	}

	a.DeltaPct = (cur.Gap - old.Gap) * 100 / old.Gap
	if math.Abs(a.DeltaPct) < ae.config.ThresholdPct {
		return a, false
	}
	a.Severity = getSeverity(a.DeltaPct)
	if a.DeltaPct > 0 {
		a.Type = AlertGapWidened
		a.Message = fmt.Sprintf("Gap widened %.1f%% (%.2f -> %.2f ex)", a.DeltaPct, old.Gap, cur.Gap)
	} else {
		a.Type = AlertGapNarrowed
		a.Message = fmt.Sprintf("Gap narrowed %.1f%% (%.2f -> %.2f ex)", -a.DeltaPct, old.Gap, cur.Gap)
	}
	return a, true
}

// filterBySeverity removes alerts below the configured minimum severity.
func (ae *AlertEngine) filterBySeverity(alerts []Alert) []Alert {
	minRank := severityRank(ae.config.MinSeverity)
	if minRank == 0 {
		return alerts
	}
	var filtered []Alert
	for _, a := range alerts {
		if severityRank(a.Severity) >= minRank {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

func getSeverity(deltaPct float64) string {
	d := math.Abs(deltaPct)
	if d >= 50 {
		return "HIGH"
	} else if d >= 25 {
		return "MEDIUM"
	}
	return "LOW"
}

func severityRank(severity string) int {
	switch severity {
	case "HIGH":
		return 3
	case "MEDIUM":
		return 2
	case "LOW":
		return 1
	default:
		return 0
	}
}

// FormatAlert renders an alert on one line.
func FormatAlert(a Alert) string {
	return fmt.Sprintf("[%s] %s %s: %s", a.Severity, a.Type, a.BaseType, a.Message)
}
