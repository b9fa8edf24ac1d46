// Package config loads analyzer configuration from YAML, .env and the
// process environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxFetchBatch is the most listing ids the fetch endpoint accepts per call.
const MaxFetchBatch = 10

// Config is the full application configuration.
type Config struct {
	Trade        TradeConfig        `yaml:"trade"`
	Sampling     SamplingConfig     `yaml:"sampling"`
	Ramp         RampConfig         `yaml:"ramp"`
	Crafting     CraftingConfig     `yaml:"crafting"`
	Distribution DistributionConfig `yaml:"distribution"`
	Store        StoreConfig        `yaml:"store"`
	Currency     CurrencyConfig     `yaml:"currency"`
	Logging      LoggingConfig      `yaml:"logging"`
	Server       ServerConfig       `yaml:"server"`
	Watch        WatchConfig        `yaml:"watch"`
}

// TradeConfig configures the marketplace client.
type TradeConfig struct {
	BaseURL   string        `yaml:"base_url"`
	League    string        `yaml:"league"`
	Realm     string        `yaml:"realm"`
	SessionID string        `yaml:"session_id"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`

	// Client-side request budget, independent of server 429 handling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SamplingConfig holds the plain and crafting baseline sampling limits.
type SamplingConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	TargetCount  int           `yaml:"target_count"`
	MaxToInspect int           `yaml:"max_to_inspect"`
	BatchDelay   time.Duration `yaml:"batch_delay"`

	// "first" or "unique"; picks the raw mod line used as display text.
	MatchStrategy string `yaml:"match_strategy"`

	// Optional price sanity limits in exalted; caps are keyed by rarity
	// with "default" for the rest.
	MinPrice  float64            `yaml:"min_price"`
	PriceCaps map[string]float64 `yaml:"price_caps"`
}

// RampConfig drives the escalating price floor search for best-tier items.
type RampConfig struct {
	Progression  []float64     `yaml:"progression"`
	TargetCount  int           `yaml:"target_count"`
	MaxToInspect int           `yaml:"max_to_inspect"`
	MinModifiers int           `yaml:"min_modifiers"`
	AttemptDelay time.Duration `yaml:"attempt_delay"`
	Currency     string        `yaml:"currency"`
	Rarity       string        `yaml:"rarity"`
}

// CraftingConfig describes the crafting-grade baseline filters.
type CraftingConfig struct {
	MinItemLevel int `yaml:"min_item_level"`
	MinSockets   int `yaml:"min_sockets"`
}

// DistributionConfig configures the price histogram run.
type DistributionConfig struct {
	Buckets        int           `yaml:"buckets"`
	ExtremeSamples int           `yaml:"extreme_samples"`
	BucketSamples  int           `yaml:"bucket_samples"`
	BucketInspect  int           `yaml:"bucket_inspect"`
	BucketDelay    time.Duration `yaml:"bucket_delay"`
	Rarity         string        `yaml:"rarity"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver        string `yaml:"driver"` // sqlite or mongo
	SQLitePath    string `yaml:"sqlite_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// CurrencyConfig points at the persisted rate table.
type CurrencyConfig struct {
	CachePath string        `yaml:"cache_path"`
	TTL       time.Duration `yaml:"ttl"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `yaml:"level"`

	// Log format: text or json
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// WatchConfig configures scheduled batch analysis.
type WatchConfig struct {
	Schedule    string   `yaml:"schedule"`
	BaseTypes   []string `yaml:"base_types"`
	Concurrency int      `yaml:"concurrency"`

	// Gap changes between runs smaller than AlertThresholdPct are not reported.
	AlertThresholdPct float64 `yaml:"alert_threshold_pct"`
	AlertMinGap       float64 `yaml:"alert_min_gap"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Trade: TradeConfig{
			BaseURL:           "https://www.pathofexile.com/api/trade2",
			League:            "Fate of the Vaal",
			Realm:             "poe2",
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:146.0) Gecko/20100101 Firefox/146.0",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 1,
			Burst:             3,
		},
		Sampling: SamplingConfig{
			BatchSize:     10,
			TargetCount:   5,
			MaxToInspect:  50,
			BatchDelay:    500 * time.Millisecond,
			MatchStrategy: "first",
		},
		Ramp: RampConfig{
			Progression:  []float64{1, 100, 250, 500, 1000, 5000},
			TargetCount:  5,
			MaxToInspect: 100,
			MinModifiers: 2,
			AttemptDelay: time.Second,
			Currency:     "exalted",
			Rarity:       "magic",
		},
		Crafting: CraftingConfig{
			MinItemLevel: 82,
			MinSockets:   2,
		},
		Distribution: DistributionConfig{
			Buckets:        10,
			ExtremeSamples: 5,
			BucketSamples:  3,
			BucketInspect:  10,
			BucketDelay:    time.Second,
			Rarity:         "nonunique",
		},
		Store: StoreConfig{
			Driver:        "sqlite",
			SQLitePath:    "data/poe2gap.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "poe2_trade",
		},
		Currency: CurrencyConfig{
			CachePath: "data/cache/currency.json",
			TTL:       24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: ":5000",
		},
		Watch: WatchConfig{
			Schedule:          "@every 6h",
			Concurrency:       2,
			AlertThresholdPct: 20,
			AlertMinGap:       1,
		},
	}
}

// Load reads the YAML file at path (a missing file keeps the defaults),
// then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// .env is optional; its values never override variables already set.
	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Trade.SessionID = getEnv("POESESSID", c.Trade.SessionID)
	c.Trade.League = getEnv("POE_LEAGUE", c.Trade.League)
	c.Trade.Realm = getEnv("POE_REALM", c.Trade.Realm)
	c.Trade.RequestsPerSecond = getEnvFloat("POE2GAP_REQUESTS_PER_SECOND", c.Trade.RequestsPerSecond)
	c.Store.Driver = getEnv("POE2GAP_DB_DRIVER", c.Store.Driver)
	c.Store.SQLitePath = getEnv("POE2GAP_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.MongoURI = getEnv("MONGODB_URI", c.Store.MongoURI)
	c.Logging.Level = getEnv("POE2GAP_LOG_LEVEL", c.Logging.Level)
	c.Server.Addr = getEnv("POE2GAP_ADDR", c.Server.Addr)
	c.Sampling.TargetCount = getEnvInt("POE2GAP_TARGET_COUNT", c.Sampling.TargetCount)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Trade.BaseURL == "" {
		return fmt.Errorf("trade.base_url is required")
	}
	if c.Trade.League == "" {
		return fmt.Errorf("trade.league is required")
	}
	if c.Sampling.BatchSize <= 0 || c.Sampling.BatchSize > MaxFetchBatch {
		return fmt.Errorf("sampling.batch_size must be between 1 and %d", MaxFetchBatch)
	}
	if c.Sampling.TargetCount <= 0 || c.Ramp.TargetCount <= 0 {
		return fmt.Errorf("target counts must be positive")
	}
	if len(c.Ramp.Progression) == 0 {
		return fmt.Errorf("ramp.progression must not be empty")
	}
	for i, p := range c.Ramp.Progression {
		if p <= 0 {
			return fmt.Errorf("ramp.progression[%d] must be positive", i)
		}
		if i > 0 && p <= c.Ramp.Progression[i-1] {
			return fmt.Errorf("ramp.progression must be strictly increasing")
		}
	}
	switch c.Sampling.MatchStrategy {
	case "", "first", "unique":
	default:
		return fmt.Errorf("invalid sampling.match_strategy: %s", c.Sampling.MatchStrategy)
	}
	if c.Distribution.Buckets <= 0 {
		return fmt.Errorf("distribution.buckets must be positive")
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path required for sqlite driver")
		}
	case "mongo":
		if c.Store.MongoURI == "" {
			return fmt.Errorf("store.mongo_uri required for mongo driver")
		}
	default:
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
