package analysis

import (
	"log/slog"
	"time"

	"github.com/guarzo/poe2gradegap/internal/config"
	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/mods"
	"github.com/guarzo/poe2gradegap/internal/trade"
)

// Options tunes an Analyzer. Zero values fall back to DefaultOptions.
type Options struct {
	BatchSize    int
	TargetCount  int
	MaxToInspect int
	BatchDelay   time.Duration

	Ramp         RampOptions
	Crafting     CraftingOptions
	Distribution DistributionOptions
	Sanitize     *SanitizeConfig

	// MatchStrategy picks the raw mod line used as display text.
	MatchStrategy mods.MatchStrategy

	// Sleep waits between batches, ramp attempts and buckets.
	Sleep  trade.SleepFunc
	Logger *slog.Logger
}

type RampOptions struct {
	Progression  []float64
	TargetCount  int
	MaxToInspect int
	MinModifiers int
	AttemptDelay time.Duration
	Currency     string
	Rarity       string
}

type CraftingOptions struct {
	MinItemLevel int
	MinSockets   int
}

type DistributionOptions struct {
	Buckets        int
	ExtremeSamples int
	ExtremeInspect int
	BucketSamples  int
	BucketInspect  int
	BucketDelay    time.Duration
	Rarity         string
}

// DefaultProgression is the relative price floor ladder of a ramp.
var DefaultProgression = []float64{1, 100, 250, 500, 1000, 5000}

// DefaultOptions mirrors config.DefaultConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

// OptionsFromConfig maps configuration sections onto analyzer options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		BatchSize:     cfg.Sampling.BatchSize,
		TargetCount:   cfg.Sampling.TargetCount,
		MaxToInspect:  cfg.Sampling.MaxToInspect,
		BatchDelay:    cfg.Sampling.BatchDelay,
		MatchStrategy: mods.ParseMatchStrategy(cfg.Sampling.MatchStrategy),
		Ramp: RampOptions{
			Progression:  append([]float64(nil), cfg.Ramp.Progression...),
			TargetCount:  cfg.Ramp.TargetCount,
			MaxToInspect: cfg.Ramp.MaxToInspect,
			MinModifiers: cfg.Ramp.MinModifiers,
			AttemptDelay: cfg.Ramp.AttemptDelay,
			Currency:     cfg.Ramp.Currency,
			Rarity:       cfg.Ramp.Rarity,
		},
		Crafting: CraftingOptions{
			MinItemLevel: cfg.Crafting.MinItemLevel,
			MinSockets:   cfg.Crafting.MinSockets,
		},
		Distribution: DistributionOptions{
			Buckets:        cfg.Distribution.Buckets,
			ExtremeSamples: cfg.Distribution.ExtremeSamples,
			ExtremeInspect: cfg.Sampling.MaxToInspect,
			BucketSamples:  cfg.Distribution.BucketSamples,
			BucketInspect:  cfg.Distribution.BucketInspect,
			BucketDelay:    cfg.Distribution.BucketDelay,
			Rarity:         cfg.Distribution.Rarity,
		},
	}
	if len(cfg.Sampling.PriceCaps) > 0 || cfg.Sampling.MinPrice > 0 {
		opts.Sanitize = &SanitizeConfig{MinPrice: cfg.Sampling.MinPrice, Caps: cfg.Sampling.PriceCaps}
	}
	return opts
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.TargetCount <= 0 {
		o.TargetCount = 5
	}
	if o.MaxToInspect <= 0 {
		o.MaxToInspect = 50
	}
	if len(o.Ramp.Progression) == 0 {
		o.Ramp.Progression = DefaultProgression
	}
	if o.Ramp.TargetCount <= 0 {
		o.Ramp.TargetCount = o.TargetCount
	}
	if o.Ramp.MaxToInspect <= 0 {
		o.Ramp.MaxToInspect = 100
	}
	if o.Ramp.Currency == "" {
		o.Ramp.Currency = model.CommonCurrency
	}
	if o.Ramp.Rarity == "" {
		o.Ramp.Rarity = "magic"
	}
	if o.Distribution.Buckets <= 0 {
		o.Distribution.Buckets = 10
	}
	if o.Distribution.ExtremeSamples <= 0 {
		o.Distribution.ExtremeSamples = 5
	}
	if o.Distribution.ExtremeInspect <= 0 {
		o.Distribution.ExtremeInspect = o.MaxToInspect
	}
	if o.Distribution.BucketSamples <= 0 {
		o.Distribution.BucketSamples = 3
	}
	if o.Distribution.BucketInspect <= 0 {
		o.Distribution.BucketInspect = 10
	}
	if o.Distribution.Rarity == "" {
		o.Distribution.Rarity = "nonunique"
	}
	if o.Sleep == nil {
		o.Sleep = trade.Sleep
	}
	return o
}
