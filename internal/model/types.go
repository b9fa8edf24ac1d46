package model

import (
	"time"
)

// CommonCurrency is the unit every normalized price is expressed in.
const CommonCurrency = "exalted"

// ModKind is the affix kind derived from a tier label.
type ModKind string

const (
	KindPrefix   ModKind = "prefix"
	KindSuffix   ModKind = "suffix"
	KindExplicit ModKind = "explicit"
)

// KindOf maps "P<n>" to prefix, "S<n>" to suffix and anything else to explicit.
func KindOf(tier string) ModKind {
	switch {
	case len(tier) > 0 && (tier[0] == 'P' || tier[0] == 'p'):
		return KindPrefix
	case len(tier) > 0 && (tier[0] == 'S' || tier[0] == 's'):
		return KindSuffix
	default:
		return KindExplicit
	}
}

// ModifierDescriptor is the flattened form of one item modifier.
type ModifierDescriptor struct {
	Name         string   `json:"name" bson:"name"`
	Tier         string   `json:"tier" bson:"tier"`
	Kind         ModKind  `json:"kind" bson:"kind"`
	Group        string   `json:"mod_type" bson:"mod_type"`
	Rarity       string   `json:"rarity" bson:"rarity"`
	ItemName     string   `json:"item_name" bson:"item_name"`
	DisplayText  string   `json:"display_text" bson:"display_text"`
	MagnitudeMin *float64 `json:"magnitude_min" bson:"magnitude_min"`
	MagnitudeMax *float64 `json:"magnitude_max" bson:"magnitude_max"`
}

// ModifierKey identifies a descriptor for deduplication.
type ModifierKey struct {
	Name  string
	Tier  string
	Group string
}

func (d ModifierDescriptor) Key() ModifierKey {
	return ModifierKey{Name: d.Name, Tier: d.Tier, Group: d.Group}
}

// ExclusionRule removes matching modifiers from analysis. Empty fields are
// wildcards; NamePattern uses SQL LIKE syntax (% and _).
type ExclusionRule struct {
	ID          string    `json:"id" bson:"-"`
	NamePattern string    `json:"mod_name_pattern" bson:"mod_name_pattern"`
	Tier        string    `json:"mod_tier" bson:"mod_tier"`
	Group       string    `json:"mod_type" bson:"mod_type"`
	Reason      string    `json:"reason" bson:"reason"`
	Active      bool      `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// HasCriteria reports whether the rule constrains anything at all.
func (r ExclusionRule) HasCriteria() bool {
	return r.NamePattern != "" || r.Tier != "" || r.Group != ""
}

// GapReport compares plain, crafting-grade and best-tier averages for a base
// type. Averages are in CommonCurrency; zero means "no data".
type GapReport struct {
	ID              string    `json:"id" bson:"-"`
	BaseType        string    `json:"base_type" bson:"base_type"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	NormalAvg       float64   `json:"normal_avg_ex" bson:"normal_avg_ex"`
	CraftingAvg     float64   `json:"crafting_avg_ex" bson:"crafting_avg_ex"`
	BestTierAvg     float64   `json:"magic_avg_ex" bson:"magic_avg_ex"`
	Gap             float64   `json:"gap_ex" bson:"gap_ex"`
	NormalQueryID   string    `json:"search_id" bson:"search_id"`
	CraftingQueryID string    `json:"crafting_search_id" bson:"crafting_search_id"`
	BestTierQueryID string    `json:"magic_search_id" bson:"magic_search_id"`
	BestTierFloor   float64   `json:"magic_price_floor" bson:"magic_price_floor"`

	NormalModifiers   []ModifierDescriptor `json:"normal_modifiers" bson:"normal_modifiers"`
	CraftingModifiers []ModifierDescriptor `json:"crafting_modifiers" bson:"crafting_modifiers"`
	BestTierModifiers []ModifierDescriptor `json:"magic_modifiers" bson:"magic_modifiers"`
}

// Attribute is a modifier seen while sampling a price bucket.
type Attribute struct {
	Name  string `json:"name" bson:"name"`
	Group string `json:"mod_type" bson:"mod_type"`
	Count int    `json:"count" bson:"count"`
}

// PriceBucket is one equal-width slice of a distribution.
type PriceBucket struct {
	Min        float64     `json:"min_price" bson:"min_price"`
	Max        float64     `json:"max_price" bson:"max_price"`
	Count      int         `json:"count" bson:"count"`
	AvgPrice   float64     `json:"avg_price" bson:"avg_price"`
	QueryID    string      `json:"search_id" bson:"search_id"`
	Attributes []Attribute `json:"attributes" bson:"attributes"`
}

// DistributionReport is a price histogram for a base type.
type DistributionReport struct {
	ID        string        `json:"id" bson:"-"`
	BaseType  string        `json:"base_type" bson:"base_type"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	MinPrice  float64       `json:"min_price" bson:"min_price"`
	MaxPrice  float64       `json:"max_price" bson:"max_price"`
	Buckets   []PriceBucket `json:"buckets" bson:"buckets"`
}
