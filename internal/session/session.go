// Package session manages one ephemeral container bound to a role in an
// envdiff run. The baseline and after sessions go through the same setup;
// only the after session then runs the main operation, so whatever differs
// between the two containers afterwards came from that operation.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/containertools/envdiff/internal/config"
	"github.com/containertools/envdiff/internal/container"
	"github.com/containertools/envdiff/internal/report"
)

// Role identifies which side of the comparison a session represents.
type Role string

const (
	RoleBaseline Role = "baseline"
	RoleAfter    Role = "after"
)

// Container is the runtime surface a session drives. *container.Client
// implements it; tests substitute fakes.
type Container interface {
	Create(ctx context.Context) error
	CopyTo(ctx context.Context, src, dest string) error
	Exec(ctx context.Context, command string) (container.ExecResult, error)
	ExportPaths(ctx context.Context, paths []string, hostDir string) error
	Remove(ctx context.Context) error
}

// Error is a fatal session failure: the run aborts, but every session that
// reached Created is still destroyed.
type Error struct {
	Role Role
	Op   string // "create", "copy", "prepare", "operation", "export", "capture"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s session %s: %v", e.Role, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Session owns one container exclusively through its lifecycle:
// Created → Prepared → (after only) OperationRun → Exported → Destroyed.
type Session struct {
	role      Role
	ctr       Container
	logger    *zap.Logger
	created   bool
	destroyed bool
}

// New binds a role to a container. The container is not created yet.
func New(role Role, ctr Container, logger *zap.Logger) *Session {
	return &Session{
		role:   role,
		ctr:    ctr,
		logger: logger.With(zap.String("session", string(role))),
	}
}

// Role returns the session's role.
func (s *Session) Role() Role { return s.role }

// Begin creates and starts the container. Once Begin has been called the
// session must be destroyed, whether or not Begin succeeded: a failed start
// can still leave a container behind.
func (s *Session) Begin(ctx context.Context) error {
	s.created = true
	if err := s.ctr.Create(ctx); err != nil {
		return &Error{Role: s.role, Op: "create", Err: err}
	}
	return nil
}

// Prepare copies the configured files into the container and runs the
// prepare commands in order. Any copy failure or non-zero prepare exit is
// fatal: the environment would not be in the expected baseline state.
func (s *Session) Prepare(ctx context.Context, cfgDir string, prep config.Prepare) error {
	for _, cf := range prep.CopyFiles {
		src := cf.Src
		if !filepath.IsAbs(src) {
			src = filepath.Join(cfgDir, src)
		}
		if _, err := os.Stat(src); err != nil {
			return &Error{Role: s.role, Op: "copy", Err: fmt.Errorf("source %q: %w", cf.Src, err)}
		}
		if err := s.ctr.CopyTo(ctx, src, cf.Dest); err != nil {
			return &Error{Role: s.role, Op: "copy", Err: err}
		}
	}
	for _, command := range prep.Commands {
		result, err := s.ctr.Exec(ctx, command)
		if err != nil {
			return &Error{Role: s.role, Op: "prepare", Err: err}
		}
		if result.ExitCode != 0 {
			return &Error{Role: s.role, Op: "prepare", Err: fmt.Errorf(
				"command %q exited %d: %s", command, result.ExitCode, strings.TrimSpace(result.Stderr))}
		}
		s.logger.Info("prepare command succeeded", zap.String("command", command))
	}
	return nil
}

// RunOperation executes the main-operation commands in order, recording one
// CommandResult per command. A non-zero exit is recorded, not fatal: later
// commands still run and the run still produces a report. Only a transport
// failure (the runtime tool itself unreachable) aborts.
func (s *Session) RunOperation(ctx context.Context, commands []string) ([]report.CommandResult, error) {
	results := make([]report.CommandResult, 0, len(commands))
	for _, command := range commands {
		result, err := s.ctr.Exec(ctx, command)
		if err != nil {
			return results, &Error{Role: s.role, Op: "operation", Err: err}
		}
		if result.ExitCode != 0 {
			s.logger.Warn("operation command exited non-zero",
				zap.String("command", command),
				zap.Int("exit_code", result.ExitCode))
		} else {
			s.logger.Info("operation command succeeded", zap.String("command", command))
		}
		results = append(results, report.CommandResult{
			Command:    command,
			Stdout:     strings.TrimSpace(result.Stdout),
			Stderr:     strings.TrimSpace(result.Stderr),
			ReturnCode: result.ExitCode,
		})
	}
	return results, nil
}

// CaptureOutput runs a command_diff command and returns its raw stdout. A
// non-zero exit is logged but the captured stdout is still usable.
func (s *Session) CaptureOutput(ctx context.Context, command string) (string, error) {
	result, err := s.ctr.Exec(ctx, command)
	if err != nil {
		return "", &Error{Role: s.role, Op: "capture", Err: err}
	}
	if result.ExitCode != 0 {
		s.logger.Warn("command diff capture exited non-zero",
			zap.String("command", command),
			zap.Int("exit_code", result.ExitCode),
			zap.String("stderr", strings.TrimSpace(result.Stderr)))
	}
	return result.Stdout, nil
}

// Export extracts the target directories into hostDir.
func (s *Session) Export(ctx context.Context, targetDirs []string, hostDir string) error {
	if err := s.ctr.ExportPaths(ctx, targetDirs, hostDir); err != nil {
		return &Error{Role: s.role, Op: "export", Err: err}
	}
	return nil
}

// Destroy removes the container. It runs at most once per session that
// reached Created and never masks an earlier error: failures are logged and
// returned for the caller to inspect.
func (s *Session) Destroy(ctx context.Context) error {
	if !s.created || s.destroyed {
		return nil
	}
	s.destroyed = true
	if err := s.ctr.Remove(ctx); err != nil {
		s.logger.Error("session cleanup failed", zap.Error(err))
		return err
	}
	s.logger.Info("session destroyed")
	return nil
}
