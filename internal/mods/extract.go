// Package mods flattens listing modifiers into descriptors and filters them.
package mods

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/guarzo/poe2gradegap/internal/model"
)

// MatchStrategy decides which raw mod line replaces a synthesized display
// text when several lines carry a number inside the modifier's range.
type MatchStrategy int

const (
	// MatchFirst takes the first candidate line in item order.
	MatchFirst MatchStrategy = iota

	// MatchUnique only reconciles when exactly one line matches and keeps
	// the synthesized text otherwise.
	MatchUnique
)

// ParseMatchStrategy maps "unique" to MatchUnique and anything else to
// MatchFirst.
func ParseMatchStrategy(s string) MatchStrategy {
	if strings.EqualFold(strings.TrimSpace(s), "unique") {
		return MatchUnique
	}
	return MatchFirst
}

// UnknownName is used for modifiers that carry no name.
const UnknownName = "Unknown"

var (
	numberToken  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	markupChoice = regexp.MustCompile(`\[([^|\]]+)\|([^\]]+)\]`)
	markupPlain  = regexp.MustCompile(`\[([^\]]+)\]`)
)

// Extractor turns listings into ModifierDescriptors.
type Extractor struct {
	Strategy MatchStrategy
}

// Extract returns descriptors for the given origin groups (all groups when
// none are given). Malformed data at any level yields fewer descriptors,
// never an error.
func (e Extractor) Extract(l model.Listing, groups ...string) []model.ModifierDescriptor {
	if len(groups) == 0 {
		groups = model.AllGroups
	}

	rarity := l.Rarity()
	itemName := l.Name()

	var out []model.ModifierDescriptor
	for _, group := range groups {
		var lines []string
		if group == model.GroupExplicit || group == model.GroupImplicit {
			lines = l.ModLines(group)
			for i := range lines {
				lines[i] = CleanText(lines[i])
			}
		}

		for _, mod := range l.ExtendedMods(group) {
			if _, ok := mod.Object(); !ok {
				continue
			}
			out = append(out, e.describe(mod, group, rarity, itemName, lines))
		}
	}
	return out
}

func (e Extractor) describe(mod model.Node, group, rarity, itemName string, lines []string) model.ModifierDescriptor {
	name := strings.TrimSpace(mod.Get("name").Str())
	if name == "" {
		name = UnknownName
	}
	tier := mod.Get("tier").Str()

	d := model.ModifierDescriptor{
		Name:     name,
		Tier:     tier,
		Kind:     model.KindOf(tier),
		Group:    group,
		Rarity:   rarity,
		ItemName: itemName,
	}

	if mags := mod.Get("magnitudes").List(); len(mags) > 0 {
		if v, ok := mags[0].Get("min").Float(); ok {
			d.MagnitudeMin = &v
		}
		if v, ok := mags[0].Get("max").Float(); ok {
			d.MagnitudeMax = &v
		}
	}

	if text := strings.TrimSpace(mod.Get("text").Str()); text != "" {
		d.DisplayText = CleanText(text)
		return d
	}

	d.DisplayText = synthesize(d.MagnitudeMin, d.MagnitudeMax, name)
	if line, ok := e.reconcile(d.MagnitudeMin, d.MagnitudeMax, lines); ok {
		d.DisplayText = line
	}
	return d
}

// synthesize renders "min to max", a single bound, or the bare name.
func synthesize(lo, hi *float64, name string) string {
	switch {
	case lo != nil && hi != nil && *lo != *hi:
		return formatNumber(*lo) + " to " + formatNumber(*hi)
	case lo != nil:
		return formatNumber(*lo)
	case hi != nil:
		return formatNumber(*hi)
	default:
		return name
	}
}

func (e Extractor) reconcile(lo, hi *float64, lines []string) (string, bool) {
	if len(lines) == 0 || (lo == nil && hi == nil) {
		return "", false
	}
	low, high := bounds(lo, hi)

	var found []string
	for _, line := range lines {
		if !lineInRange(line, low, high) {
			continue
		}
		if e.Strategy == MatchFirst {
			return line, true
		}
		found = append(found, line)
	}
	if len(found) == 1 {
		return found[0], true
	}
	return "", false
}

func bounds(lo, hi *float64) (float64, float64) {
	switch {
	case lo == nil:
		return *hi, *hi
	case hi == nil:
		return *lo, *lo
	case *lo > *hi:
		return *hi, *lo
	default:
		return *lo, *hi
	}
}

// lineInRange reports whether any number in line falls inside [low, high].
// Negative ranges ("reduced" modifiers) are displayed as positive numbers,
// so they also match on absolute values.
func lineInRange(line string, low, high float64) bool {
	negative := low < 0 && high < 0
	absLow, absHigh := math.Abs(high), math.Abs(low)

	for _, tok := range numberToken.FindAllString(line, -1) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		if v >= low && v <= high {
			return true
		}
		if negative {
			a := math.Abs(v)
			if a >= absLow && a <= absHigh {
				return true
			}
		}
	}
	return false
}

// CleanText strips the trade site's "[Tag|Shown]" and "[Tag]" markup,
// keeping the shown text.
func CleanText(s string) string {
	s = markupChoice.ReplaceAllString(s, "$2")
	return markupPlain.ReplaceAllString(s, "$1")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
