package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/report"
)

var distributionFlags struct {
	buckets int
	json    bool
	csv     string
	noSave  bool
}

var distributionCmd = &cobra.Command{
	Use:     "distribution <base type>",
	Aliases: []string{"dist"},
	Short:   "Build a price histogram of a base type",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDistribution,
}

func init() {
	f := distributionCmd.Flags()
	f.IntVar(&distributionFlags.buckets, "buckets", 0, "Number of price buckets (default from config)")
	f.BoolVar(&distributionFlags.json, "json", false, "Print the report as JSON")
	f.StringVar(&distributionFlags.csv, "csv", "", "Also write the buckets to this CSV file")
	f.BoolVar(&distributionFlags.noSave, "no-save", false, "Do not persist the report")
}

func runDistribution(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	baseType := strings.Join(args, " ")
	rules, err := a.activeRules(ctx)
	if err != nil {
		return err
	}
	dist, err := a.analyzer.AnalyzeDistribution(ctx, baseType, distributionFlags.buckets, rules)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", baseType, err)
	}
	if !distributionFlags.noSave {
		if dist.ID, err = a.store.SaveDistribution(ctx, dist); err != nil {
			return err
		}
	}

	if distributionFlags.csv != "" {
		f, err := os.Create(distributionFlags.csv)
		if err != nil {
			return fmt.Errorf("creating csv: %w", err)
		}
		if err := report.WriteDistributions(f, []model.DistributionReport{dist}); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if distributionFlags.json {
		return writeJSON(cmd.OutOrStdout(), dist)
	}
	printDistribution(cmd.OutOrStdout(), dist)
	return nil
}
