package model

import (
	"encoding/json"
	"strings"
)

// Modifier origin groups as they appear under item.extended.mods.
const (
	GroupExplicit   = "explicit"
	GroupImplicit   = "implicit"
	GroupFractured  = "fractured"
	GroupDesecrated = "desecrated"
	GroupRune       = "rune"
)

// AllGroups lists every origin group the extractor understands.
var AllGroups = []string{GroupExplicit, GroupImplicit, GroupFractured, GroupDesecrated, GroupRune}

// AffixGroups are the groups that carry ranked prefixes and suffixes.
var AffixGroups = []string{GroupExplicit, GroupFractured, GroupDesecrated}

// Price is a listing's asking price in its original currency.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Listing is one fetched marketplace record. The payload is kept as a Node so
// that missing or wrong-typed fields read as empty instead of failing decode.
type Listing struct {
	ID   string
	root Node
}

// NewListing wraps a decoded fetch result entry.
func NewListing(raw any) Listing {
	root := NodeOf(raw)
	return Listing{ID: root.Get("id").Str(), root: root}
}

func (l *Listing) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*l = NewListing(raw)
	return nil
}

func (l Listing) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.root.Raw())
}

// Item is the item sub-document.
func (l Listing) Item() Node {
	return l.root.Get("item")
}

// Rarity is the lower-cased item rarity ("normal", "magic", ...).
func (l Listing) Rarity() string {
	return strings.ToLower(l.Item().Get("rarity").Str())
}

func (l Listing) BaseType() string {
	return l.Item().Get("baseType").Str()
}

// Name falls back to the base type for unnamed (normal/magic) items.
func (l Listing) Name() string {
	if n := l.Item().Get("name").Str(); n != "" {
		return n
	}
	if t := l.Item().Get("typeLine").Str(); t != "" {
		return t
	}
	return l.BaseType()
}

// Price returns the asking price. ok is false when amount or currency is
// absent or unparseable.
func (l Listing) Price() (Price, bool) {
	p := l.root.Path("listing", "price")
	amount, ok := p.Get("amount").Float()
	if !ok {
		return Price{}, false
	}
	currency := p.Get("currency").Str()
	if currency == "" {
		return Price{}, false
	}
	return Price{Amount: amount, Currency: currency}, true
}

// ExtendedMods returns the structured modifiers of one origin group. The
// trade API nests them under item.extended.mods; some captured payloads
// carry extended at the top level, which is accepted as a fallback.
func (l Listing) ExtendedMods(group string) []Node {
	if mods := l.Item().Path("extended", "mods", group).List(); mods != nil {
		return mods
	}
	return l.root.Path("extended", "mods", group).List()
}

// ModLines returns the flat display strings for a group (explicitMods, ...).
func (l Listing) ModLines(group string) []string {
	return l.Item().Get(group + "Mods").Strings()
}
