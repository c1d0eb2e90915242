package diff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/containertools/envdiff/internal/config"
)

// fakeCapturer returns scripted stdout per command.
type fakeCapturer struct {
	outputs  map[string]string
	commands []string
}

func (f *fakeCapturer) CaptureOutput(ctx context.Context, command string) (string, error) {
	f.commands = append(f.commands, command)
	return f.outputs[command], nil
}

func TestCommandOutputsIdenticalYieldsEmptyContent(t *testing.T) {
	base := &fakeCapturer{outputs: map[string]string{"rpm -qa | sort": "pkg-1\npkg-2\n"}}
	after := &fakeCapturer{outputs: map[string]string{"rpm -qa | sort": "pkg-1\npkg-2\n"}}

	entries := []config.CommandDiff{{Command: "rpm -qa | sort", Outfile: "rpm_list.txt"}}
	diffs, err := NewEngine(nil, zap.NewNop()).CommandOutputs(context.Background(), entries, base, after)
	require.NoError(t, err)

	require.Len(t, diffs, 1, "identical output still produces an entry")
	assert.Equal(t, "rpm -qa | sort", diffs[0].Command)
	assert.Equal(t, "rpm_list.txt", diffs[0].DiffFile)
	assert.Equal(t, "", diffs[0].DiffContent)
}

func TestCommandOutputsDiffering(t *testing.T) {
	base := &fakeCapturer{outputs: map[string]string{"rpm -qa | sort": "pkg-1\n"}}
	after := &fakeCapturer{outputs: map[string]string{"rpm -qa | sort": "pkg-1\npkg-new\n"}}

	entries := []config.CommandDiff{{Command: "rpm -qa | sort", Outfile: "out/rpm_list.txt"}}
	diffs, err := NewEngine(nil, zap.NewNop()).CommandOutputs(context.Background(), entries, base, after)
	require.NoError(t, err)

	require.Len(t, diffs, 1)
	content := diffs[0].DiffContent
	assert.Contains(t, content, "--- base/rpm_list.txt")
	assert.Contains(t, content, "+++ after/rpm_list.txt")
	assert.Contains(t, content, "+pkg-new")
	assert.Equal(t, "out/rpm_list.txt", diffs[0].DiffFile, "diff_file keeps the configured outfile")
}

func TestCommandOutputsRunInBothSessionsInOrder(t *testing.T) {
	base := &fakeCapturer{outputs: map[string]string{}}
	after := &fakeCapturer{outputs: map[string]string{}}

	entries := []config.CommandDiff{
		{Command: "first", Outfile: "a.txt"},
		{Command: "second", Outfile: "b.txt"},
	}
	_, err := NewEngine(nil, zap.NewNop()).CommandOutputs(context.Background(), entries, base, after)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, base.commands)
	assert.Equal(t, []string{"first", "second"}, after.commands)
}
