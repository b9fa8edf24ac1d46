package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var gapFlags struct {
	json   bool
	noSave bool
}

var gapCmd = &cobra.Command{
	Use:   "gap <base type>",
	Short: "Compare normal, crafting-grade and best-tier prices of a base type",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGap,
}

func init() {
	f := gapCmd.Flags()
	f.BoolVar(&gapFlags.json, "json", false, "Print the report as JSON")
	f.BoolVar(&gapFlags.noSave, "no-save", false, "Do not persist the report")
}

func runGap(cmd *cobra.Command, args []string) error {
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
	report, err := a.analyzer.AnalyzeGap(ctx, baseType, rules)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", baseType, err)
	}
	if !gapFlags.noSave {
		if report.ID, err = a.store.SaveGap(ctx, report); err != nil {
			return err
		}
	}

	if gapFlags.json {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printGap(cmd.OutOrStdout(), report)
	return nil
}
