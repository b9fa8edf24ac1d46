// Package stats aggregates how often modifiers appear on listings, grouped
// by item category.
package stats

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/mods"
)

var (
	rangePattern  = regexp.MustCompile(`\d+(?:\.\d+)?-\d+(?:\.\d+)?`)
	signedNumber  = regexp.MustCompile(`[+-](\d)`)
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	spaces        = regexp.MustCompile(`\s+`)
)

// Line types beyond the origin groups.
const (
	TypePrefix = "prefix"
	TypeSuffix = "suffix"
	TypeBonded = "bonded"
)

// lineGroups is the order lines are visited in, which decides the type a
// duplicated line is counted under.
var lineGroups = []string{
	model.GroupExplicit, model.GroupImplicit, model.GroupFractured, model.GroupRune, model.GroupDesecrated,
}

// Affix is a ranked modifier's kind and magnitude ranges, used to tell
// prefix lines from suffix lines.
type Affix struct {
	Kind   model.ModKind
	Ranges [][2]float64
}

// Item is the part of a listing the aggregation needs.
type Item struct {
	ID       string
	BaseType string
	Lines    map[string][]string // origin group -> display lines
	Affixes  []Affix
}

// ItemFromListing collects display lines and affix ranges of a listing.
func ItemFromListing(l model.Listing) Item {
	item := Item{ID: l.ID, BaseType: l.BaseType(), Lines: make(map[string][]string)}
	for _, g := range lineGroups {
		if lines := l.ModLines(g); len(lines) > 0 {
			item.Lines[g] = lines
		}
	}
	for _, g := range model.AffixGroups {
		for _, mod := range l.ExtendedMods(g) {
			var ranges [][2]float64
			for _, mag := range mod.Get("magnitudes").List() {
				lo, _ := mag.Get("min").Float()
				hi, _ := mag.Get("max").Float()
				ranges = append(ranges, [2]float64{lo, hi})
			}
			if len(ranges) > 0 {
				item.Affixes = append(item.Affixes, Affix{Kind: model.KindOf(mod.Get("tier").Str()), Ranges: ranges})
			}
		}
	}
	return item
}

// ValueStats summarizes the numbers at one position of a modifier line.
type ValueStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Stat is one normalized modifier line within a category.
type Stat struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
	Values     []ValueStats `json:"values"`
}

// Category is the statistics of one item category.
type Category struct {
	TotalItems int    `json:"total_items"`
	Stats      []Stat `json:"stats"`
}

// Report maps category name to its statistics.
type Report map[string]Category

// Aggregator accumulates items. It is safe for concurrent use.
type Aggregator struct {
	mu         sync.Mutex
	categories map[string]*categoryAgg
}

type statKey struct {
	name string
	typ  string
}

type categoryAgg struct {
	count int
	mods  map[statKey]*modAgg
}

type modAgg struct {
	count  int
	values [][]float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{categories: make(map[string]*categoryAgg)}
}

// AddListing aggregates a fetched listing.
func (a *Aggregator) AddListing(l model.Listing) {
	a.AddItem(ItemFromListing(l))
}

// AddItem aggregates one item. A normalized line counts once per item.
func (a *Aggregator) AddItem(item Item) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := CategoryOf(item.BaseType)
	cat, ok := a.categories[name]
	if !ok {
		cat = &categoryAgg{mods: make(map[statKey]*modAgg)}
		a.categories[name] = cat
	}
	cat.count++

	seen := make(map[statKey]bool)
	for _, group := range lineGroups {
		for _, raw := range item.Lines[group] {
			clean := mods.CleanText(raw)
			values := ExtractValues(clean)
			key := statKey{name: NormalizeText(clean), typ: lineType(group, clean, values, item.Affixes)}
			if key.name == "" || seen[key] {
				continue
			}
			seen[key] = true

			m, ok := cat.mods[key]
			if !ok {
				m = &modAgg{}
				cat.mods[key] = m
			}
			m.count++
			m.values = append(m.values, values)
		}
	}
}

// Report renders the accumulated statistics, most frequent lines first.
func (a *Aggregator) Report() Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(Report, len(a.categories))
	for name, cat := range a.categories {
		if cat.count == 0 {
			continue
		}
		stats := make([]Stat, 0, len(cat.mods))
		for key, m := range cat.mods {
			stats = append(stats, Stat{
				Name:       key.name,
				Type:       key.typ,
				Count:      m.count,
				Percentage: round1(float64(m.count) / float64(cat.count) * 100),
				Values:     positionStats(m.values),
			})
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].Count != stats[j].Count {
				return stats[i].Count > stats[j].Count
			}
			if stats[i].Name != stats[j].Name {
				return stats[i].Name < stats[j].Name
			}
			return stats[i].Type < stats[j].Type
		})
		out[name] = Category{TotalItems: cat.count, Stats: stats}
	}
	return out
}

// CategoryOf folds weapon bases into their class; other bases stand alone.
func CategoryOf(baseType string) string {
	for _, class := range []string{"Bow", "Wand", "Staff", "Crossbow", "Talisman", "Quiver"} {
		if strings.Contains(baseType, class) {
			return class
		}
	}
	if baseType == "" {
		return "Unknown"
	}
	return baseType
}

// NormalizeText replaces numbers with # (ranges with #-#) and drops their
// signs so rolls of the same modifier share one name.
func NormalizeText(s string) string {
	const placeholder = "\x00"
	s = rangePattern.ReplaceAllString(s, placeholder)
	s = signedNumber.ReplaceAllString(s, "$1")
	s = numberPattern.ReplaceAllString(s, "#")
	s = strings.ReplaceAll(s, placeholder, "#-#")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// ExtractValues returns the unsigned numbers in s.
func ExtractValues(s string) []float64 {
	var out []float64
	for _, tok := range numberPattern.FindAllString(s, -1) {
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func lineType(group, text string, values []float64, affixes []Affix) string {
	switch group {
	case model.GroupRune:
		if strings.Contains(text, "Bonded") {
			return TypeBonded
		}
		return model.GroupRune
	case model.GroupExplicit, model.GroupDesecrated:
		if len(values) == 0 {
			return model.GroupExplicit
		}
		for _, affix := range affixes {
			for _, r := range affix.Ranges {
				if inRange(values[0], r) {
					return string(affix.Kind)
				}
			}
		}
		return model.GroupExplicit
	default:
		return group
	}
}

// inRange matches v against a magnitude range. Display numbers are
// unsigned, so "reduced" modifiers with negative ranges match on absolute
// values.
func inRange(v float64, r [2]float64) bool {
	lo, hi := min(r[0], r[1]), max(r[0], r[1])
	if v >= lo && v <= hi {
		return true
	}
	if hi < 0 {
		a := math.Abs(v)
		return a >= -hi && a <= -lo
	}
	return false
}

func positionStats(all [][]float64) []ValueStats {
	width := 0
	for _, v := range all {
		width = max(width, len(v))
	}
	if width == 0 {
		return nil
	}

	out := make([]ValueStats, width)
	for k := 0; k < width; k++ {
		lo, hi, sum, n := math.Inf(1), math.Inf(-1), 0.0, 0
		for _, v := range all {
			if k >= len(v) {
				continue
			}
			lo = min(lo, v[k])
			hi = max(hi, v[k])
			sum += v[k]
			n++
		}
		if n > 0 {
			out[k] = ValueStats{Min: lo, Max: hi, Avg: round1(sum / float64(n))}
		}
	}
	return out
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
