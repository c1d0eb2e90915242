package container

import (
	"context"
	"strings"
	"testing"
)

func TestExecRunner_Run_CapturesStdout(t *testing.T) {
	runner := &ExecRunner{}
	result, err := runner.Run(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d", result.ExitCode)
	}
}

func TestExecRunner_Run_NonZeroExitIsNotAnError(t *testing.T) {
	runner := &ExecRunner{}
	result, err := runner.RunShell(context.Background(), "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
	if strings.TrimSpace(result.Stderr) != "oops" {
		t.Errorf("stderr = %q", result.Stderr)
	}
}

func TestExecRunner_Run_MissingBinaryIsAnError(t *testing.T) {
	runner := &ExecRunner{}
	_, err := runner.Run(context.Background(), "definitely-not-a-real-binary")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestExecRunner_RunShell_Pipeline(t *testing.T) {
	runner := &ExecRunner{}
	result, err := runner.RunShell(context.Background(), "printf 'b\\na\\n' | sort")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stdout != "a\nb\n" {
		t.Errorf("stdout = %q", result.Stdout)
	}
}
