package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/guarzo/poe2gradegap/internal/cache"
	"github.com/guarzo/poe2gradegap/internal/currency"
)

var ratesFlags struct {
	replace bool
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show or import currency exchange rates",
}

var ratesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the rate table in use",
	RunE:  runRatesShow,
}

var ratesImportCmd = &cobra.Command{
	Use:   "import <rates.json>",
	Short: "Import rates from a JSON object of currency code to exalted value",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatesImport,
}

func init() {
	ratesImportCmd.Flags().BoolVar(&ratesFlags.replace, "replace", false, "Replace the table instead of merging over it")
	ratesCmd.AddCommand(ratesShowCmd)
	ratesCmd.AddCommand(ratesImportCmd)
}

func runRatesShow(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	age, cached := a.cache.Age(cache.RatesKey(cfg.Trade.League))
	out := cmd.OutOrStdout()
	if cached {
		fmt.Fprintf(out, "Rates for %s (imported %s ago)\n", cfg.Trade.League, age.Round(time.Second))
	} else {
		fmt.Fprintf(out, "Default rates for %s\n", cfg.Trade.League)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, code := range a.rates.Codes() {
		rate, _ := a.rates.Rate(code)
		fmt.Fprintf(tw, "%s\t%g\n", code, rate)
	}
	return tw.Flush()
}

func runRatesImport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	rates, err := currency.LoadFile(args[0])
	if err != nil {
		return err
	}

	table := a.rates.WithRates(rates)
	if ratesFlags.replace {
		table = currency.New(rates)
	}
	if err := currency.Save(a.cache, cfg.Trade.League, table, cfg.Currency.TTL); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rates for %s\n", len(rates), cfg.Trade.League)
	return nil
}
