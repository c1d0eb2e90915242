package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/containertools/envdiff/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs recorded in the local history store",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		stats, _ := cmd.Flags().GetBool("stats")

		path, err := history.DefaultPath()
		if err != nil {
			return err
		}
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if stats {
			return printImageStats(cmd, store)
		}

		runs, err := store.List(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-20s %-6s %-40s %-6s %-8s %s\n",
			"GENERATED", "TOOL", "IMAGE", "OPS", "CHANGED", "TITLE")
		for _, r := range runs {
			title := r.Title
			if title == "" {
				title = "-"
			}
			fmt.Fprintf(out, "%-20s %-6s %-40s %-6d %-8d %s\n",
				r.GeneratedOn, r.ContainerTool, r.BaseImage,
				r.OperationCount, r.ChangedPaths, title)
		}
		return nil
	},
}

func printImageStats(cmd *cobra.Command, store *history.Store) error {
	stats, err := store.StatsByImage()
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-40s %-6s %-12s %-12s %s\n",
		"IMAGE", "RUNS", "AVG CHANGED", "MAX CHANGED", "LAST RUN")
	for _, s := range stats {
		fmt.Fprintf(out, "%-40s %-6d %-12.1f %-12d %s\n",
			s.BaseImage, s.Runs, s.AvgChanged, s.MaxChanged, s.LastGenerated)
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("stats", false, "show aggregate statistics per base image instead of individual runs")
}
