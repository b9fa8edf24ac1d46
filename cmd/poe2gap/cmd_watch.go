package main

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/guarzo/poe2gradegap/internal/monitoring"
	"github.com/guarzo/poe2gradegap/internal/progress"
	"github.com/guarzo/poe2gradegap/internal/store"
)

var watchFlags struct {
	schedule string
	runNow   bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [base types...]",
	Short: "Re-run batch gap analysis on a cron schedule",
	Long: `Runs gap analysis for the configured base types (watch.base_types, or the
arguments) on watch.schedule, e.g. "@every 6h" or "0 */4 * * *", and stores
each report. Stops on SIGINT or SIGTERM.`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchFlags.schedule, "schedule", "", "Cron schedule (default from watch.schedule)")
	f.BoolVar(&watchFlags.runNow, "now", false, "Run once immediately before waiting for the schedule")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bases := args
	if len(bases) == 0 {
		bases = cfg.Watch.BaseTypes
	}
	if len(bases) == 0 {
		return fmt.Errorf("no base types to watch: pass them as arguments or set watch.base_types")
	}
	schedule := watchFlags.schedule
	if schedule == "" {
		schedule = cfg.Watch.Schedule
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	alerts := monitoring.NewAlertEngine(monitoring.AlertConfig{
		ThresholdPct: cfg.Watch.AlertThresholdPct,
		MinGap:       cfg.Watch.AlertMinGap,
	})

	run := func() {
		// Rules are re-read per run so edits apply to the next cycle.
		rules, err := a.activeRules(ctx)
		if err != nil {
			a.logger.Error("watch run skipped", slog.Any("error", err))
			return
		}
		previous, err := a.store.LatestGaps(ctx, len(bases)+store.DefaultListLimit)
		if err != nil {
			a.logger.Warn("loading previous reports", slog.Any("error", err))
		}

		tracker := progress.New(nil, "watch", len(bases))
		res, err := runBatch(ctx, a.analyzer, a.store, rules, bases, cfg.Watch.Concurrency, tracker)
		if err != nil {
			a.logger.Warn("watch run interrupted", slog.Any("error", err))
		}
		for _, al := range alerts.Compare(previous, res.Reports) {
			fmt.Fprintln(cmd.OutOrStdout(), monitoring.FormatAlert(al))
		}
		a.logger.Info("watch run complete",
			slog.Int("reports", len(res.Reports)),
			slog.Int("failed", len(res.Failed)))
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, run); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	if watchFlags.runNow {
		run()
	}
	c.Start()
	a.logger.Info("watching", slog.String("schedule", schedule), slog.Int("base_types", len(bases)))

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}
