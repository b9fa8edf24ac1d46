package mods

import "github.com/guarzo/poe2gradegap/internal/model"

// Dedupe collapses descriptors sharing (name, tier, group), keeping the one
// with the longer display text. First-seen order is preserved.
func Dedupe(in []model.ModifierDescriptor) []model.ModifierDescriptor {
	if len(in) == 0 {
		return nil
	}

	index := make(map[model.ModifierKey]int, len(in))
	out := make([]model.ModifierDescriptor, 0, len(in))
	for _, d := range in {
		i, seen := index[d.Key()]
		if !seen {
			index[d.Key()] = len(out)
			out = append(out, d)
			continue
		}
		if len(d.DisplayText) > len(out[i].DisplayText) {
			out[i] = d
		}
	}
	return out
}
