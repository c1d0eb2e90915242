// Package report holds the structured output of an envdiff run: metadata,
// the resolved configuration, main-operation command results, and the diff
// reports. It is pure data assembly; the diff engine and orchestrator fill
// it in and the CLI serializes it.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimeFormat is the timestamp layout used in report metadata.
const TimeFormat = "2006-01-02 15:04:05"

// Metadata describes how and when a report was generated.
type Metadata struct {
	GeneratedOn   string `json:"generated_on"`
	ContainerTool string `json:"container_tool"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
}

// CommandResult is the captured outcome of one main-operation command,
// recorded in execution order and immutable once recorded.
type CommandResult struct {
	Command    string `json:"command"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
}

// CommandDiff is the diff of one command_diff entry's output between the
// baseline and after sessions. DiffContent is empty when the outputs match;
// the entry is still present.
type CommandDiff struct {
	Command     string `json:"command"`
	DiffFile    string `json:"diff_file"`
	DiffContent string `json:"diff_content"`
}

// DiffReport aggregates the three diff products of a run.
type DiffReport struct {
	FilesystemStructural []string      `json:"filesystem_rq"`
	FilesystemUnified    []string      `json:"filesystem_urN"`
	CommandOutputs       []CommandDiff `json:"command_outputs"`
}

// Report is the full run output, assembled once per run.
type Report struct {
	Metadata             Metadata        `json:"report_metadata"`
	Definitions          map[string]any  `json:"definitions"`
	MainOperationResults []CommandResult `json:"main_operation_results"`
	DiffReports          DiffReport      `json:"diff_reports"`
}

// New creates a report shell from run metadata and the resolved
// configuration document. A title or description in the document moves into
// the metadata; the rest stays in Definitions verbatim.
func New(tool string, generatedAt time.Time, definitions map[string]any) *Report {
	defs := make(map[string]any, len(definitions))
	for k, v := range definitions {
		defs[k] = v
	}
	meta := Metadata{
		GeneratedOn:   generatedAt.Format(TimeFormat),
		ContainerTool: tool,
	}
	if title, ok := defs["title"].(string); ok {
		meta.Title = title
		delete(defs, "title")
	}
	if desc, ok := defs["description"].(string); ok {
		meta.Description = desc
		delete(defs, "description")
	}
	return &Report{
		Metadata:             meta,
		Definitions:          defs,
		MainOperationResults: []CommandResult{},
		DiffReports: DiffReport{
			FilesystemStructural: []string{},
			FilesystemUnified:    []string{},
			CommandOutputs:       []CommandDiff{},
		},
	}
}

// WriteJSON writes the report to path as indented JSON, creating parent
// directories as needed.
func (r *Report) WriteJSON(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Load reads a previously written JSON report.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}
