package analysis

import (
	"strings"

	"github.com/guarzo/poe2gradegap/internal/model"
)

// Validator decides whether a listing counts as a best-tier sample.
type Validator interface {
	IsBestTier(l model.Listing) bool
}

// TierQualifier is implemented by validators that also restrict which
// modifier tiers are recorded alongside a sample.
type TierQualifier interface {
	QualifiesTier(tier string) bool
}

// BestTier accepts listings whose ranked affixes are all rank 1.
type BestTier struct{}

// IsBestTier requires at least one modifier in the explicit, fractured and
// desecrated groups, every one of them P1 or S1.
func (BestTier) IsBestTier(l model.Listing) bool {
	found := 0
	for _, group := range model.AffixGroups {
		for _, mod := range l.ExtendedMods(group) {
			if _, ok := mod.Object(); !ok {
				continue
			}
			found++
			if !isTopTier(mod.Get("tier").Str()) {
				return false
			}
		}
	}
	return found > 0
}

func (BestTier) QualifiesTier(tier string) bool {
	return isTopTier(tier)
}

func isTopTier(tier string) bool {
	t := strings.ToUpper(strings.TrimSpace(tier))
	return t == "P1" || t == "S1"
}

// Null accepts every listing.
type Null struct{}

func (Null) IsBestTier(model.Listing) bool { return true }
