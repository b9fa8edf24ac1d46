package mods

import (
	"testing"

	"github.com/guarzo/poe2gradegap/internal/model"
)

func TestMatches(t *testing.T) {
	fire := model.ModifierDescriptor{Name: "Flaming", Tier: "P1", Group: "explicit"}

	tests := []struct {
		name string
		rule model.ExclusionRule
		want bool
	}{
		{"tier only", model.ExclusionRule{Tier: "P1", Active: true}, true},
		{"tier mismatch", model.ExclusionRule{Tier: "P2", Active: true}, false},
		{"group only", model.ExclusionRule{Group: "explicit", Active: true}, true},
		{"group mismatch", model.ExclusionRule{Group: "fractured", Active: true}, false},
		{"pattern prefix", model.ExclusionRule{NamePattern: "flam%", Active: true}, true},
		{"pattern is anchored", model.ExclusionRule{NamePattern: "lam", Active: true}, false},
		{"pattern contains", model.ExclusionRule{NamePattern: "%lam%", Active: true}, true},
		{"underscore single char", model.ExclusionRule{NamePattern: "Flamin_", Active: true}, true},
		{"regex metacharacters are literal", model.ExclusionRule{NamePattern: "Flam.ng", Active: true}, false},
		{"all criteria", model.ExclusionRule{NamePattern: "Flaming", Tier: "P1", Group: "explicit", Active: true}, true},
		{"one criterion fails", model.ExclusionRule{NamePattern: "Flaming", Tier: "S1", Active: true}, false},
		{"inactive", model.ExclusionRule{Tier: "P1"}, false},
		{"no criteria", model.ExclusionRule{Active: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.rule, fire); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExclusions_Filter(t *testing.T) {
	ex := CompileExclusions([]model.ExclusionRule{
		{Tier: "S3", Active: true},
		{NamePattern: "%Life%", Active: true},
		{Group: "explicit"}, // inactive
	})
	if ex.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ex.Len())
	}

	in := []model.ModifierDescriptor{
		{Name: "of the Fox", Tier: "S3", Group: "explicit"},
		{Name: "Healthy Life", Tier: "P1", Group: "explicit"},
		{Name: "Glinting", Tier: "P1", Group: "explicit"},
	}
	got := ex.Filter(in)
	if len(got) != 1 || got[0].Name != "Glinting" {
		t.Errorf("Filter = %+v", got)
	}

	var none *Exclusions
	if len(none.Filter(in)) != 3 || none.Excludes(in[0]) {
		t.Error("nil exclusions should pass everything through")
	}
}
