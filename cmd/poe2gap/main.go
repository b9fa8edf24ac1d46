// poe2gap measures the price gap between plain, crafting-grade and
// best-tier items on the Path of Exile 2 trade market.
//
// Usage:
//
//	poe2gap gap "Gold Ring"
//	poe2gap distribution "Gold Ring" --buckets 10
//	poe2gap batch -f bases.txt --csv out/gaps.csv
//	poe2gap stats query.json | page.html
//	poe2gap watch
//	poe2gap serve
//	poe2gap exclusions add --tier P1 --reason "too common"
//	poe2gap rates import rates.json
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/guarzo/poe2gradegap/internal/config"
	"github.com/guarzo/poe2gradegap/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// cfg is loaded once per invocation by the root pre-run hook.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "poe2gap",
	Short: "Price gap analysis for the Path of Exile 2 trade market",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "config.yaml", "Path to the YAML config file (optional)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "Override the log format (text, json)")

	rootCmd.AddCommand(gapCmd)
	rootCmd.AddCommand(distributionCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exclusionsCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(rootFlags.configPath)
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		c.Logging.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		c.Logging.Format = rootFlags.logFormat
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.Init(logging.ParseLevel(c.Logging.Level), c.Logging.Format, cmd.ErrOrStderr())
	cfg = c
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
