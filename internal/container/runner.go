package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExecResult holds the captured output of one executed command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts host command execution for testability. Run invokes a
// binary with arguments; RunShell hands a full command line to sh -c, used
// for the export pipeline.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (ExecResult, error)
	RunShell(ctx context.Context, command string) (ExecResult, error)
}

// ExecRunner implements Runner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) (ExecResult, error) {
	return run(exec.CommandContext(ctx, name, args...))
}

func (e *ExecRunner) RunShell(ctx context.Context, command string) (ExecResult, error) {
	return run(exec.CommandContext(ctx, "sh", "-c", command))
}

func run(cmd *exec.Cmd) (ExecResult, error) {
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("exec %s: %w", cmd.Path, err)
	}
	return result, nil
}
