package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/guarzo/poe2gradegap/internal/model"
)

var exclusionFlags struct {
	pattern string
	tier    string
	group   string
	reason  string
	all     bool
}

var exclusionsCmd = &cobra.Command{
	Use:   "exclusions",
	Short: "Manage modifier exclusion rules",
}

var exclusionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an exclusion rule",
	Long: `Adds a rule removing matching modifiers from analysis. At least one of
--pattern (SQL LIKE syntax, e.g. "%Life%"), --tier or --type is required.`,
	RunE: runExclusionsAdd,
}

var exclusionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exclusion rules",
	RunE:  runExclusionsList,
}

var exclusionsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Deactivate an exclusion rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runExclusionsRemove,
}

func init() {
	f := exclusionsAddCmd.Flags()
	f.StringVar(&exclusionFlags.pattern, "pattern", "", "Modifier name pattern")
	f.StringVar(&exclusionFlags.tier, "tier", "", "Modifier tier, e.g. P1")
	f.StringVar(&exclusionFlags.group, "type", "", "Modifier origin group, e.g. explicit")
	f.StringVar(&exclusionFlags.reason, "reason", "", "Why the rule exists")

	exclusionsListCmd.Flags().BoolVar(&exclusionFlags.all, "all", false, "Include inactive rules")

	exclusionsCmd.AddCommand(exclusionsAddCmd)
	exclusionsCmd.AddCommand(exclusionsListCmd)
	exclusionsCmd.AddCommand(exclusionsRemoveCmd)
}

func runExclusionsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	rule, err := a.store.AddExclusion(ctx, model.ExclusionRule{
		NamePattern: exclusionFlags.pattern,
		Tier:        exclusionFlags.tier,
		Group:       exclusionFlags.group,
		Reason:      exclusionFlags.reason,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added exclusion %s\n", rule.ID)
	return nil
}

func runExclusionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	rules, err := a.store.ListExclusions(ctx, exclusionFlags.all)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATTERN\tTIER\tTYPE\tACTIVE\tREASON")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			r.ID, orDash(r.NamePattern), orDash(r.Tier), orDash(r.Group), r.Active, r.Reason)
	}
	return tw.Flush()
}

func runExclusionsRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if err := a.store.DeactivateExclusion(ctx, args[0]); err != nil {
		return fmt.Errorf("removing exclusion %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deactivated exclusion %s\n", args[0])
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
