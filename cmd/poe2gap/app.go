package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guarzo/poe2gradegap/internal/analysis"
	"github.com/guarzo/poe2gradegap/internal/cache"
	"github.com/guarzo/poe2gradegap/internal/config"
	"github.com/guarzo/poe2gradegap/internal/currency"
	"github.com/guarzo/poe2gradegap/internal/logging"
	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/store"
	"github.com/guarzo/poe2gradegap/internal/trade"
)

// app holds the collaborators a command needs.
type app struct {
	cfg      *config.Config
	cache    *cache.Cache
	rates    *currency.Table
	client   *trade.Client
	analyzer *analysis.Analyzer
	store    store.Store
	logger   *slog.Logger
}

// newApp builds the trade client and analyzer. The store is opened only
// when withStore is set so read-only commands work without a database.
func newApp(ctx context.Context, c *config.Config, withStore bool) (*app, error) {
	a := &app{cfg: c, logger: logging.New("cli")}

	fc, err := cache.New(c.Currency.CachePath)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	a.cache = fc

	if a.rates, err = currency.Load(fc, c.Trade.League); err != nil {
		return nil, err
	}

	a.client = trade.NewClient(trade.Config{
		BaseURL:           c.Trade.BaseURL,
		League:            c.Trade.League,
		Realm:             c.Trade.Realm,
		SessionID:         c.Trade.SessionID,
		UserAgent:         c.Trade.UserAgent,
		Timeout:           c.Trade.Timeout,
		RequestsPerSecond: c.Trade.RequestsPerSecond,
		Burst:             c.Trade.Burst,
	})
	a.analyzer = analysis.New(a.client, a.rates, analysis.OptionsFromConfig(c))

	if withStore {
		if a.store, err = store.Open(ctx, c.Store); err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("closing store", slog.Any("error", err))
	}
}

// activeRules reads the exclusion snapshot for one run.
func (a *app) activeRules(ctx context.Context) ([]model.ExclusionRule, error) {
	if a.store == nil {
		return nil, nil
	}
	rules, err := a.store.ActiveExclusions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exclusions: %w", err)
	}
	return rules, nil
}
