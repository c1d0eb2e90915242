package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "envdiff",
	Short: "envdiff — diff the effects of an operation inside a container",
	Long: `envdiff captures what a script, package install, or configuration change
mutates inside a known base image. It provisions two containers from the same
image, prepares both identically, runs the operation under test in one, and
reports the filesystem and command-output differences between them.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger; --verbose switches to development
// output with debug level.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
