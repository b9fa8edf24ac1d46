package analysis

import (
	"math"
	"strings"
)

// SanitizeConfig holds price sanity limits, in exalted.
type SanitizeConfig struct {
	MinPrice float64            // prices below are dropped (default: any positive price)
	Caps     map[string]float64 // per-rarity ceilings; "default" applies to unlisted rarities
}

// DefaultSanitizeConfig keeps every positive finite price.
func DefaultSanitizeConfig() *SanitizeConfig {
	return &SanitizeConfig{}
}

// SanitizePrice returns price, or 0 when it cannot be used as a sample:
// non-finite, non-positive, below the minimum, or above the rarity cap.
// Caps catch price-fixing listings that would drag an average.
func SanitizePrice(price float64, rarity string, config *SanitizeConfig) float64 {
	if config == nil {
		config = DefaultSanitizeConfig()
	}

	if isInvalidPrice(price) {
		return 0
	}
	if price < config.MinPrice {
		return 0
	}
	if cap, ok := getCapForRarity(rarity, config); ok && price > cap {
		return 0
	}
	return price
}

func isInvalidPrice(price float64) bool {
	return math.IsNaN(price) || math.IsInf(price, 0) || price <= 0
}

func getCapForRarity(rarity string, config *SanitizeConfig) (float64, bool) {
	if len(config.Caps) == 0 {
		return 0, false
	}
	if cap, ok := config.Caps[strings.ToLower(rarity)]; ok && cap > 0 {
		return cap, true
	}
	if cap, ok := config.Caps["default"]; ok && cap > 0 {
		return cap, true
	}
	return 0, false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
