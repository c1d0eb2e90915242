package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/containertools/envdiff/internal/report"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <report.json>",
	Short: "Render a JSON report as a human-readable summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := report.Load(args[0])
		if err != nil {
			return err
		}
		text := report.FormatText(rep)

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		}
		if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write summary %s: %w", output, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", output)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().String("output", "", "write the summary to a file instead of stdout")
}
