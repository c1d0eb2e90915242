package diff

import (
	"context"
	"path"

	"go.uber.org/zap"

	"github.com/containertools/envdiff/internal/config"
	"github.com/containertools/envdiff/internal/report"
)

// OutputCapturer runs a command inside a live session and returns its
// stdout. Both sessions implement it.
type OutputCapturer interface {
	CaptureOutput(ctx context.Context, command string) (string, error)
}

// CommandOutputs executes every command_diff entry in the baseline and
// after sessions and diffs the captured stdouts. Entries whose outputs are
// byte-identical are still present with empty diff content.
func (e *Engine) CommandOutputs(ctx context.Context, entries []config.CommandDiff, base, after OutputCapturer) ([]report.CommandDiff, error) {
	diffs := make([]report.CommandDiff, 0, len(entries))
	for _, entry := range entries {
		baseOut, err := base.CaptureOutput(ctx, entry.Command)
		if err != nil {
			return nil, err
		}
		afterOut, err := after.CaptureOutput(ctx, entry.Command)
		if err != nil {
			return nil, err
		}

		content := ""
		if baseOut != afterOut {
			name := path.Base(entry.Outfile)
			content, err = unifiedBody(baseOut, afterOut, "base/"+name, "after/"+name)
			if err != nil {
				return nil, err
			}
		}
		e.logger.Debug("command output diffed",
			zap.String("command", entry.Command),
			zap.Bool("changed", content != ""))
		diffs = append(diffs, report.CommandDiff{
			Command:     entry.Command,
			DiffFile:    entry.Outfile,
			DiffContent: content,
		})
	}
	return diffs, nil
}
