package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/containertools/envdiff/internal/config"
	"github.com/containertools/envdiff/internal/container"
	"github.com/containertools/envdiff/internal/history"
	"github.com/containertools/envdiff/internal/orchestrator"
	"github.com/containertools/envdiff/internal/report"
	"github.com/containertools/envdiff/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an analysis and write the JSON report",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		tool, _ := cmd.Flags().GetString("container-tool")
		if !container.SupportedTool(tool) {
			return fmt.Errorf("unsupported container tool %q (supported: podman, docker)", tool)
		}

		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		cfg, err := config.Resolve(input)
		if err != nil {
			return err
		}

		runner := &container.ExecRunner{}
		factory := func() session.Container {
			return container.NewClient(tool, cfg.BaseImage, runner, logger)
		}

		// An interrupt aborts the run; sessions already created are still
		// destroyed before the process reports failure.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rep, err := orchestrator.New(cfg, tool, factory, logger).Run(ctx)
		if err != nil {
			return err
		}
		if err := rep.WriteJSON(output); err != nil {
			return err
		}
		recordRun(logger, cfg, input, output, rep)

		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
		return nil
	},
}

// recordRun appends the completed run to the local history store.
// Best-effort: a history failure never fails a run that already produced
// its report.
func recordRun(logger *zap.Logger, cfg *config.Config, configPath, reportPath string, rep *report.Report) {
	path, err := history.DefaultPath()
	if err != nil {
		logger.Warn("history store unavailable", zap.Error(err))
		return
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("history store unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	err = store.Record(history.Run{
		GeneratedOn:    rep.Metadata.GeneratedOn,
		Title:          rep.Metadata.Title,
		BaseImage:      cfg.BaseImage,
		ContainerTool:  rep.Metadata.ContainerTool,
		ConfigPath:     configPath,
		ReportPath:     reportPath,
		OperationCount: len(rep.MainOperationResults),
		ChangedPaths:   len(rep.DiffReports.FilesystemStructural),
	})
	if err != nil {
		logger.Warn("recording run history failed", zap.Error(err))
	}
}

func init() {
	runCmd.Flags().String("input", "input.yaml", "path to the input YAML configuration file")
	runCmd.Flags().String("output", "output.json", "path to save the generated JSON report")
	runCmd.Flags().String("container-tool", container.DefaultTool, "container runtime to use (podman or docker)")
}
