package report

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// definitionOrder is the canonical key order for the text summary's
// definitions section. Keys not listed render afterwards, sorted.
var definitionOrder = []string{
	"base_image",
	"prepare",
	"main_operation",
	"target_dirs",
	"exclude_paths",
	"omit_diff_paths",
}

// FormatText renders a report as the deterministic human-readable summary:
// labeled sections mirroring the JSON structure.
func FormatText(r *Report) string {
	var b strings.Builder

	writeMetadata(&b, r.Metadata)
	writeDefinitions(&b, r.Definitions)
	writeOperationResults(&b, r.MainOperationResults)

	b.WriteString("Filesystem diff (rq):\n")
	writeBulleted(&b, r.DiffReports.FilesystemStructural)
	b.WriteString("\n")

	b.WriteString("Filesystem diff (urN):\n")
	writeBulleted(&b, r.DiffReports.FilesystemUnified)
	b.WriteString("\n")

	for _, entry := range r.DiffReports.CommandOutputs {
		fmt.Fprintf(&b, "Command diff for: %s (file: %s)\n", entry.Command, entry.DiffFile)
		if entry.DiffContent != "" {
			b.WriteString(indentBlock(entry.DiffContent, 2))
			b.WriteString("\n")
		} else {
			b.WriteString("  No diff content available.\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeMetadata(b *strings.Builder, meta Metadata) {
	generated := meta.GeneratedOn
	if generated == "" {
		generated = "unknown"
	}
	tool := meta.ContainerTool
	if tool == "" {
		tool = "unknown"
	}
	fmt.Fprintf(b, "Report generated on: %s\n", generated)
	fmt.Fprintf(b, "Container tool: %s\n", tool)
	if meta.Title != "" {
		fmt.Fprintf(b, "Title: %s\n", meta.Title)
	}
	if meta.Description != "" {
		b.WriteString("Description:\n")
		b.WriteString(indentBlock(meta.Description, 2))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeDefinitions(b *strings.Builder, defs map[string]any) {
	if len(defs) == 0 {
		return
	}
	b.WriteString("Definitions:\n")
	for _, key := range definitionKeys(defs) {
		value := defs[key]
		// main_operation commands are already reported with their results.
		if key == "main_operation" {
			value = withoutKey(value, "commands")
			if value == nil {
				continue
			}
		}
		fmt.Fprintf(b, "- %s:\n", key)
		b.WriteString(indentBlock(renderYAML(value), 2))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// definitionKeys returns the keys to render: the canonical prefix order,
// then any leftovers sorted. command_diff is covered by its own sections.
func definitionKeys(defs map[string]any) []string {
	keys := make([]string, 0, len(defs))
	listed := map[string]bool{"command_diff": true}
	for _, key := range definitionOrder {
		listed[key] = true
		if _, ok := defs[key]; ok {
			keys = append(keys, key)
		}
	}
	var rest []string
	for key := range defs {
		if !listed[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func writeOperationResults(b *strings.Builder, results []CommandResult) {
	b.WriteString("Main operation results:\n")
	for _, entry := range results {
		fmt.Fprintf(b, "- %s (exit code %d)\n", entry.Command, entry.ReturnCode)
		if entry.Stdout != "" {
			b.WriteString("  stdout:\n")
			b.WriteString(indentBlock(entry.Stdout, 4))
			b.WriteString("\n")
		}
		if entry.Stderr != "" {
			b.WriteString("  stderr:\n")
			b.WriteString(indentBlock(entry.Stderr, 4))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
}

// writeBulleted renders each item as a "  - " bullet; continuation lines of
// multi-line items align under the bullet text.
func writeBulleted(b *strings.Builder, items []string) {
	for _, item := range items {
		lines := strings.Split(strings.TrimRight(item, "\n"), "\n")
		fmt.Fprintf(b, "  - %s\n", lines[0])
		for _, line := range lines[1:] {
			fmt.Fprintf(b, "    %s\n", line)
		}
	}
}

func renderYAML(v any) string {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	_ = enc.Close()
	return strings.TrimRight(sb.String(), "\n")
}

func withoutKey(v any, key string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	trimmed := make(map[string]any, len(m))
	for k, val := range m {
		if k != key {
			trimmed[k] = val
		}
	}
	if len(trimmed) == 0 {
		return nil
	}
	return trimmed
}

func indentBlock(text string, indent int) string {
	prefix := strings.Repeat(" ", indent)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
