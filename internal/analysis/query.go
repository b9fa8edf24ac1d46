package analysis

import (
	"github.com/guarzo/poe2gradegap/internal/model"
)

// BaseQuery searches online listings of a base type with a rarity option
// ("normal", "magic", "nonunique", ...).
func BaseQuery(baseType, rarity string) model.SearchQuery {
	q := model.SearchQuery{
		"status": map[string]any{"option": "online"},
		"type":   baseType,
	}
	q.Set(map[string]any{"option": rarity}, "filters", "type_filters", "filters", "rarity")
	return q
}

// CraftingQuery narrows a normal-rarity search to crafting bases.
func CraftingQuery(baseType string, c CraftingOptions) model.SearchQuery {
	q := BaseQuery(baseType, "normal")
	if c.MinItemLevel > 0 {
		q.Set(map[string]any{"min": c.MinItemLevel}, "filters", "misc_filters", "filters", "ilvl")
	}
	if c.MinSockets > 0 {
		q.Set(map[string]any{"min": c.MinSockets}, "filters", "equipment_filters", "filters", "rune_sockets")
	}
	return q
}

// WithPriceRange returns a copy of q with a price filter. hi <= 0 leaves
// the range open.
func WithPriceRange(q model.SearchQuery, lo, hi float64, currency string) model.SearchQuery {
	out := q.Clone()
	if out == nil {
		out = model.SearchQuery{}
	}
	price := map[string]any{"min": lo, "option": currency}
	if hi > 0 {
		price["max"] = hi
	}
	out.Set(price, "filters", "trade_filters", "filters", "price")
	return out
}

// WithSort returns a copy of q sorted by price ("asc" or "desc").
func WithSort(q model.SearchQuery, direction string) model.SearchQuery {
	out := q.Clone()
	if out == nil {
		out = model.SearchQuery{}
	}
	out["sort"] = map[string]any{"price": direction}
	return out
}
