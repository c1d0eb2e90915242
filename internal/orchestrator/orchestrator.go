// Package orchestrator drives one envdiff run: two isolated sessions
// (baseline and after) receive identical preparation, the operation under
// test runs only in the after session, both filesystems are snapshotted,
// and the diff engine turns the divergence into a report.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/containertools/envdiff/internal/config"
	"github.com/containertools/envdiff/internal/diff"
	"github.com/containertools/envdiff/internal/report"
	"github.com/containertools/envdiff/internal/session"
	"github.com/containertools/envdiff/internal/snapshot"
)

// Snapshot trees are rooted under these labels, which become the path
// prefixes in diff output.
const (
	baseLabel  = "base"
	afterLabel = "after"
)

// targetDirsSkipped fills the filesystem diff slots when no target_dirs
// were configured.
const targetDirsSkipped = "Skipped: 'target_dirs' was not specified or empty in config."

// ContainerFactory produces a fresh container client for one session.
type ContainerFactory func() session.Container

// Orchestrator composes a full run from the resolved configuration.
type Orchestrator struct {
	cfg          *config.Config
	tool         string
	newContainer ContainerFactory
	logger       *zap.Logger
	now          func() time.Time
}

// New creates an Orchestrator. tool is recorded in report metadata.
func New(cfg *config.Config, tool string, factory ContainerFactory, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		tool:         tool,
		newContainer: factory,
		logger:       logger,
		now:          time.Now,
	}
}

// Run executes the pipeline and returns the assembled report. Both
// sessions stay alive through the diff phase so command_diff entries run
// against live containers; destruction is deferred at creation so it fires
// on every exit path exactly once per session.
func (o *Orchestrator) Run(ctx context.Context) (*report.Report, error) {
	rep := report.New(o.tool, o.now(), o.cfg.Raw)

	base := session.New(session.RoleBaseline, o.newContainer(), o.logger)
	after := session.New(session.RoleAfter, o.newContainer(), o.logger)
	defer o.destroy(base)
	defer o.destroy(after)

	o.logger.Info("preparing sessions", zap.String("image", o.cfg.BaseImage))
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range []*session.Session{base, after} {
		s := s
		g.Go(func() error {
			if err := s.Begin(gctx); err != nil {
				return err
			}
			return s.Prepare(gctx, o.cfg.Dir, o.cfg.Prepare)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.logger.Info("running main operation", zap.Int("commands", len(o.cfg.MainOperation.Commands)))
	results, err := after.RunOperation(ctx, o.cfg.MainOperation.Commands)
	if err != nil {
		return nil, err
	}
	rep.MainOperationResults = results

	workDir, err := os.MkdirTemp("", "envdiff-")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	o.logger.Info("capturing snapshots", zap.Strings("target_dirs", o.cfg.TargetDirs))
	var baseTree, afterTree *snapshot.Tree
	ge, gctxe := errgroup.WithContext(ctx)
	ge.Go(func() error {
		var err error
		baseTree, err = snapshot.Capture(gctxe, base, baseLabel, workDir,
			o.cfg.TargetDirs, o.cfg.ExcludePaths, o.logger)
		return err
	})
	ge.Go(func() error {
		var err error
		afterTree, err = snapshot.Capture(gctxe, after, afterLabel, workDir,
			o.cfg.TargetDirs, o.cfg.ExcludePaths, o.logger)
		return err
	})
	if err := ge.Wait(); err != nil {
		return nil, err
	}

	engine := diff.NewEngine(o.cfg.OmitDiffPaths, o.logger)
	if len(o.cfg.TargetDirs) > 0 {
		structural, unified, err := engine.CompareTrees(baseTree, afterTree)
		if err != nil {
			return nil, err
		}
		rep.DiffReports.FilesystemStructural = structural
		rep.DiffReports.FilesystemUnified = unified
	} else {
		o.logger.Warn("no target_dirs configured, skipping filesystem diff")
		rep.DiffReports.FilesystemStructural = []string{targetDirsSkipped}
		rep.DiffReports.FilesystemUnified = []string{targetDirsSkipped}
	}

	cmdDiffs, err := engine.CommandOutputs(ctx, o.cfg.CommandDiff, base, after)
	if err != nil {
		return nil, err
	}
	rep.DiffReports.CommandOutputs = cmdDiffs

	o.logger.Info("run complete",
		zap.Int("operation_results", len(rep.MainOperationResults)),
		zap.Int("structural_lines", len(rep.DiffReports.FilesystemStructural)))
	return rep, nil
}

// destroy tears a session down on a fresh context: the run context may
// already be canceled, and cleanup must still happen.
func (o *Orchestrator) destroy(s *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_ = s.Destroy(ctx)
}
