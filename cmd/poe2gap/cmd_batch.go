package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/progress"
	"github.com/guarzo/poe2gradegap/internal/report"
)

var batchFlags struct {
	file        string
	csv         string
	concurrency int
	quiet       bool
}

var batchCmd = &cobra.Command{
	Use:   "batch [base types...]",
	Short: "Run gap analysis over many base types",
	RunE:  runBatchCmd,
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchFlags.file, "file", "f", "", "File with one base type per line (# comments allowed)")
	f.StringVar(&batchFlags.csv, "csv", "", "Write the reports to this CSV file")
	f.IntVar(&batchFlags.concurrency, "concurrency", 0, "Parallel analyses (default from watch.concurrency)")
	f.BoolVarP(&batchFlags.quiet, "quiet", "q", false, "Suppress progress output")
}

// gapAnalyzer is what a batch needs from the analyzer.
type gapAnalyzer interface {
	AnalyzeGap(ctx context.Context, baseType string, rules []model.ExclusionRule) (model.GapReport, error)
}

// gapSaver persists finished reports; nil skips persistence.
type gapSaver interface {
	SaveGap(ctx context.Context, r model.GapReport) (string, error)
}

// batchResult pairs the successful reports with per-base-type failures.
type batchResult struct {
	Reports []model.GapReport
	Failed  map[string]error
}

// runBatch analyzes bases with at most concurrency in flight. A failing
// base type is recorded and does not stop the others; only cancellation
// of ctx aborts the batch.
func runBatch(ctx context.Context, an gapAnalyzer, saver gapSaver, rules []model.ExclusionRule,
	bases []string, concurrency int, tracker *progress.Tracker) (batchResult, error) {
	res := batchResult{Failed: make(map[string]error)}
	reports := make([]*model.GapReport, len(bases))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	tracker.Start()
	for i, base := range bases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := an.AnalyzeGap(gctx, base, rules)
			if err == nil && saver != nil {
				r.ID, err = saver.SaveGap(gctx, r)
			}
			if err != nil {
				tracker.Done(base, "", err)
				mu.Lock()
				res.Failed[base] = err
				mu.Unlock()
				return ctx.Err()
			}
			reports[i] = &r
			tracker.Done(base, fmt.Sprintf("gap %.2f ex", r.Gap), nil)
			return nil
		})
	}
	err := g.Wait()
	tracker.Finish()

	for _, r := range reports {
		if r != nil {
			res.Reports = append(res.Reports, *r)
		}
	}
	return res, err
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bases := append([]string(nil), args...)
	if batchFlags.file != "" {
		f, err := os.Open(batchFlags.file)
		if err != nil {
			return fmt.Errorf("opening base type file: %w", err)
		}
		fromFile, err := readBaseTypes(f)
		f.Close()
		if err != nil {
			return err
		}
		bases = append(bases, fromFile...)
	}
	if len(bases) == 0 {
		return fmt.Errorf("no base types given")
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	rules, err := a.activeRules(ctx)
	if err != nil {
		return err
	}

	var progressOut io.Writer = cmd.ErrOrStderr()
	if batchFlags.quiet {
		progressOut = nil
	}
	concurrency := batchFlags.concurrency
	if concurrency <= 0 {
		concurrency = cfg.Watch.Concurrency
	}

	tracker := progress.New(progressOut, "batch", len(bases))
	res, err := runBatch(ctx, a.analyzer, a.store, rules, bases, concurrency, tracker)
	if err != nil {
		return err
	}
	for base, ferr := range res.Failed {
		a.logger.Warn("analysis failed", slog.String("base_type", base), slog.Any("error", ferr))
	}

	if batchFlags.csv != "" {
		path := batchFlags.csv
		if strings.HasSuffix(path, "/") {
			path += report.DefaultFilename("gap", time.Now())
		}
		if err := report.WriteGapsFile(path, res.Reports); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d reports to %s\n", len(res.Reports), path)
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d base types failed", len(res.Failed), len(bases))
	}
	return nil
}

// readBaseTypes reads one base type per line, skipping blanks and comments.
func readBaseTypes(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading base types: %w", err)
	}
	return out, nil
}
