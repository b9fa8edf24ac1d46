package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/guarzo/poe2gradegap/internal/model"
)

// ListingBuilder assembles a raw fetch-result entry.
type ListingBuilder struct {
	id       string
	item     map[string]any
	extended map[string]any
	price    map[string]any
}

// NewListing starts a normal-rarity listing with the given id.
func NewListing(id string) *ListingBuilder {
	return &ListingBuilder{
		id:       id,
		item:     map[string]any{"rarity": "Normal", "baseType": "Gold Ring"},
		extended: map[string]any{},
	}
}

func (b *ListingBuilder) Rarity(r string) *ListingBuilder {
	b.item["rarity"] = r
	return b
}

func (b *ListingBuilder) BaseType(bt string) *ListingBuilder {
	b.item["baseType"] = bt
	return b
}

func (b *ListingBuilder) Name(n string) *ListingBuilder {
	b.item["name"] = n
	return b
}

// Price sets the asking price; amount may be any JSON value to build
// malformed prices.
func (b *ListingBuilder) Price(amount any, currency string) *ListingBuilder {
	b.price = map[string]any{"amount": amount, "currency": currency}
	return b
}

// Mod appends a ranked modifier with one magnitude range.
func (b *ListingBuilder) Mod(group, name, tier string, lo, hi float64) *ListingBuilder {
	return b.RawMod(group, map[string]any{
		"name":       name,
		"tier":       tier,
		"magnitudes": []any{map[string]any{"hash": "stat", "min": lo, "max": hi}},
	})
}

// RawMod appends an arbitrary modifier object.
func (b *ListingBuilder) RawMod(group string, mod map[string]any) *ListingBuilder {
	mods, _ := b.extended[group].([]any)
	b.extended[group] = append(mods, mod)
	return b
}

// Lines sets the flat display strings of a group (explicitMods, ...).
func (b *ListingBuilder) Lines(group string, lines ...string) *ListingBuilder {
	raw := make([]any, len(lines))
	for i, l := range lines {
		raw[i] = l
	}
	b.item[group+"Mods"] = raw
	return b
}

// ID returns the listing id.
func (b *ListingBuilder) ID() string {
	return b.id
}

// Raw returns the JSON-shaped document.
func (b *ListingBuilder) Raw() map[string]any {
	item := make(map[string]any, len(b.item)+1)
	for k, v := range b.item {
		item[k] = v
	}
	if len(b.extended) > 0 {
		item["extended"] = map[string]any{"mods": b.extended}
	}
	doc := map[string]any{"id": b.id, "item": item}
	if b.price != nil {
		doc["listing"] = map[string]any{"price": b.price}
	}
	return doc
}

// Build returns the model listing.
func (b *ListingBuilder) Build() model.Listing {
	return model.NewListing(b.Raw())
}

// TestDataFactory generates randomized but reproducible listings.
type TestDataFactory struct {
	rand *rand.Rand
	seq  int
}

// NewTestDataFactory creates a factory; seed 0 seeds from the clock.
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{rand: rand.New(rand.NewSource(seed))}
}

// GenerateListingID returns a 64-hex-digit style identifier.
func (f *TestDataFactory) GenerateListingID() string {
	f.seq++
	return fmt.Sprintf("%016x%08x", f.rand.Int63(), f.seq)
}

// GenerateBaseType picks a ring or amulet base.
func (f *TestDataFactory) GenerateBaseType() string {
	bases := []string{"Gold Ring", "Sapphire Ring", "Ruby Ring", "Lapis Amulet", "Jade Amulet"}
	return bases[f.rand.Intn(len(bases))]
}

// GenerateMagicListing returns a magic listing with a rank-1 or lower prefix
// and suffix, priced in exalted.
func (f *TestDataFactory) GenerateMagicListing(baseType string, price float64) *ListingBuilder {
	prefixTier := fmt.Sprintf("P%d", f.rand.Intn(3)+1)
	suffixTier := fmt.Sprintf("S%d", f.rand.Intn(3)+1)
	return NewListing(f.GenerateListingID()).
		Rarity("Magic").
		BaseType(baseType).
		Price(price, "exalted").
		Mod(model.GroupExplicit, "Glinting", prefixTier, 10, 20).
		Mod(model.GroupExplicit, "of the Fox", suffixTier, 5, 8)
}
