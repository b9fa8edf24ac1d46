package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guarzo/poe2gradegap/internal/analysis"
	"github.com/guarzo/poe2gradegap/internal/cache"
	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/stats"
)

var statsFlags struct {
	limit   int
	refresh bool
}

var statsCmd = &cobra.Command{
	Use:   "stats <query.json|page.html>",
	Short: "Modifier frequency statistics from a trade query or a saved trade page",
	Long: `Aggregates how often each modifier appears, per item category.

A .json argument is a trade search query; matching listings are fetched
from the trade API (results are cached). A .html argument is a trade
results page saved from the browser and is parsed offline.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	f := statsCmd.Flags()
	f.IntVar(&statsFlags.limit, "limit", analysis.DefaultStatsLimit, "Maximum listings to fetch")
	f.BoolVar(&statsFlags.refresh, "refresh", false, "Ignore cached results")
}

func runStats(cmd *cobra.Command, args []string) error {
	path := args[0]
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return statsFromPage(cmd, path)
	default:
		return statsFromQuery(cmd, path)
	}
}

func statsFromPage(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening page: %w", err)
	}
	defer f.Close()

	items, err := stats.ParseTradePage(f)
	if err != nil {
		return err
	}
	agg := stats.NewAggregator()
	for _, it := range items {
		agg.AddItem(it)
	}
	return writeJSON(cmd.OutOrStdout(), agg.Report())
}

func statsFromQuery(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading query: %w", err)
	}
	var q model.SearchQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return fmt.Errorf("parsing query: %w", err)
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}

	key := cache.StatsKey(cfg.Trade.League, q)
	var run analysis.StatsRun
	if !statsFlags.refresh {
		if found, err := a.cache.Get(key, &run); err == nil && found {
			a.logger.Info("using cached statistics", slog.String("search_id", run.QueryID))
			return writeJSON(cmd.OutOrStdout(), run)
		}
	}

	if run, err = a.analyzer.ModifierStats(ctx, q, statsFlags.limit); err != nil {
		return err
	}
	if err := a.cache.Put(key, run, cfg.Currency.TTL); err != nil {
		a.logger.Warn("caching statistics", slog.Any("error", err))
	}
	return writeJSON(cmd.OutOrStdout(), run)
}
