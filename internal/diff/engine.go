// Package diff compares the two exported snapshot trees and the paired
// command outputs of an envdiff run. The structural diff mirrors the
// classic `diff -rq` line format and the unified diff the `diff -urN`
// block format, so reports stay readable to anyone who knows the tools.
package diff

import (
	"fmt"
	"path"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// Error is a fatal diff failure: the report would be incomplete, so the
// run aborts (sessions are still cleaned up by the orchestrator).
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("diff %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// contextLines is the fixed unified-diff context width.
const contextLines = 3

// omissionNotice replaces the hunk body of omitted paths.
const omissionNotice = "(omitted)"

// Engine computes filesystem and command-output diffs.
type Engine struct {
	omitPaths []string
	logger    *zap.Logger
}

// NewEngine creates an engine. omitPaths are container-absolute prefixes
// whose unified-diff bodies are suppressed; the structural diff still lists
// them.
func NewEngine(omitPaths []string, logger *zap.Logger) *Engine {
	return &Engine{omitPaths: omitPaths, logger: logger}
}

// omitted reports whether the container-absolute path of rel falls under an
// omit prefix. Matching is path-component aware.
func (e *Engine) omitted(rel string) bool {
	p := "/" + rel
	for _, entry := range e.omitPaths {
		prefix := path.Clean("/" + entry)
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// unifiedBody renders a unified diff between two text contents with the
// fixed context width. Identical contents yield the empty string.
func unifiedBody(a, b, fromFile, toFile string) (string, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  contextLines,
	})
	if err != nil {
		return "", &Error{Op: "unified", Err: err}
	}
	return strings.TrimRight(text, "\n"), nil
}

// splitLines splits content into newline-terminated lines, normalizing a
// missing final newline so hunks stay clean.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	} else {
		lines[last] += "\n"
	}
	return lines
}
