package analysis

import (
	"testing"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/testutil"
)

func TestBestTier_IsBestTier(t *testing.T) {
	tests := []struct {
		name    string
		listing *testutil.ListingBuilder
		want    bool
	}{
		{
			name:    "no modifiers",
			listing: testutil.NewListing("a"),
			want:    false,
		},
		{
			name: "implicit only",
			listing: testutil.NewListing("a").
				Mod(model.GroupImplicit, "Ring", "P1", 1, 2),
			want: false,
		},
		{
			name: "rank 1 prefix and suffix",
			listing: testutil.NewListing("a").
				Mod(model.GroupExplicit, "A", "P1", 1, 2).
				Mod(model.GroupExplicit, "B", "S1", 1, 2),
			want: true,
		},
		{
			name: "rank 1 prefix with rank 2 suffix",
			listing: testutil.NewListing("a").
				Mod(model.GroupExplicit, "A", "P1", 1, 2).
				Mod(model.GroupExplicit, "B", "S2", 1, 2),
			want: false,
		},
		{
			name: "fractured and desecrated count",
			listing: testutil.NewListing("a").
				Mod(model.GroupFractured, "A", "P1", 1, 2).
				Mod(model.GroupDesecrated, "B", "S1", 1, 2),
			want: true,
		},
		{
			name: "low desecrated tier disqualifies",
			listing: testutil.NewListing("a").
				Mod(model.GroupExplicit, "A", "P1", 1, 2).
				Mod(model.GroupDesecrated, "B", "S4", 1, 2),
			want: false,
		},
		{
			name: "untiered explicit disqualifies",
			listing: testutil.NewListing("a").
				Mod(model.GroupExplicit, "A", "P1", 1, 2).
				RawMod(model.GroupExplicit, map[string]any{"name": "B"}),
			want: false,
		},
		{
			name: "rune mods are ignored",
			listing: testutil.NewListing("a").
				Mod(model.GroupExplicit, "A", "S1", 1, 2).
				Mod(model.GroupRune, "R", "", 1, 2),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (BestTier{}).IsBestTier(tt.listing.Build()); got != tt.want {
				t.Errorf("IsBestTier = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBestTier_QualifiesTier(t *testing.T) {
	for tier, want := range map[string]bool{"P1": true, "S1": true, "p1": true, "P2": false, "": false, "S10": false} {
		if got := (BestTier{}).QualifiesTier(tier); got != want {
			t.Errorf("QualifiesTier(%q) = %v, want %v", tier, got, want)
		}
	}
}

func TestNull(t *testing.T) {
	if !(Null{}).IsBestTier(testutil.NewListing("a").Build()) {
		t.Error("Null validator should accept everything")
	}
}

func TestBestTier_GeneratedListings(t *testing.T) {
	f := testutil.NewTestDataFactory(7)
	for i := 0; i < 50; i++ {
		l := f.GenerateMagicListing(f.GenerateBaseType(), 10).Build()
		want := true
		for _, m := range l.ExtendedMods(model.GroupExplicit) {
			if tier := m.Get("tier").Str(); tier != "P1" && tier != "S1" {
				want = false
			}
		}
		if got := (BestTier{}).IsBestTier(l); got != want {
			t.Fatalf("listing %d: IsBestTier = %v, want %v", i, got, want)
		}
	}
}
