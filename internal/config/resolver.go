package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resolve loads the configuration document at path, resolves its extends
// chain, and returns the effective configuration. Paths listed in extends
// are resolved relative to the directory of the document that references
// them; list-valued keys concatenate across the chain (earliest-extended
// first, current document last) while scalar and mapping keys are replaced
// wholesale by the last document that defines them.
func Resolve(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Kind: ErrUnreadable, Path: path, Msg: "cannot resolve path", Err: err}
	}
	rootDir := filepath.Dir(abs)

	raw, err := resolveDoc(abs, rootDir, map[string]bool{})
	if err != nil {
		return nil, err
	}

	for _, key := range []string{"target_dirs", "exclude_paths", "omit_diff_paths"} {
		if list, ok := raw[key].([]any); ok {
			raw[key] = dedup(list)
		}
	}
	if title, ok := raw["title"].(string); ok {
		raw["title"] = singleLine(title)
	}

	cfg, err := decode(raw)
	if err != nil {
		return nil, &Error{Kind: ErrParse, Path: abs, Msg: "decoding resolved configuration", Err: err}
	}
	cfg.Raw = raw
	cfg.Dir = rootDir

	if cfg.BaseImage == "" {
		return nil, &Error{Kind: ErrMissingField, Path: abs, Msg: "'base_image' must be defined in the configuration"}
	}
	return cfg, nil
}

// resolveDoc loads one document and merges its extends chain beneath it.
// active holds the canonical paths currently on the resolution stack; a
// revisit is a cycle.
func resolveDoc(path, rootDir string, active map[string]bool) (map[string]any, error) {
	canon := filepath.Clean(path)
	if active[canon] {
		return nil, &Error{Kind: ErrCycle, Path: canon, Msg: "extends chain revisits this document"}
	}

	data, err := os.ReadFile(canon)
	if err != nil {
		return nil, &Error{Kind: ErrUnreadable, Path: canon, Msg: "reading configuration file", Err: err}
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Kind: ErrParse, Path: canon, Msg: "parsing configuration YAML", Err: err}
	}
	if doc == nil {
		doc = map[string]any{}
	}

	rewriteCopySources(doc, filepath.Dir(canon), rootDir)

	active[canon] = true
	defer delete(active, canon)

	merged := map[string]any{}
	for _, ref := range extendsList(doc["extends"]) {
		extPath := ref
		if !filepath.IsAbs(extPath) {
			extPath = filepath.Join(filepath.Dir(canon), extPath)
		}
		child, err := resolveDoc(extPath, rootDir, active)
		if err != nil {
			return nil, err
		}
		mergeInto(merged, child)
	}
	delete(doc, "extends")
	mergeInto(merged, doc)
	return merged, nil
}

// mergeInto applies src over dst: two sequences concatenate, everything
// else (scalars and mappings alike) is a full replace.
func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		newList, newOK := value.([]any)
		oldList, oldOK := dst[key].([]any)
		if newOK && oldOK {
			combined := make([]any, 0, len(oldList)+len(newList))
			combined = append(combined, oldList...)
			combined = append(combined, newList...)
			dst[key] = combined
			continue
		}
		dst[key] = value
	}
}

// extendsList normalizes the extends value: absent, a single string, or a
// list of strings.
func extendsList(v any) []string {
	switch ext := v.(type) {
	case string:
		return []string{ext}
	case []any:
		refs := make([]string, 0, len(ext))
		for _, item := range ext {
			if s, ok := item.(string); ok {
				refs = append(refs, s)
			}
		}
		return refs
	default:
		return nil
	}
}

// rewriteCopySources rebases relative prepare.copy_files sources from the
// directory of the document that declares them onto the root document's
// directory, so extended fragments can ship files next to themselves.
func rewriteCopySources(doc map[string]any, docDir, rootDir string) {
	prepare, ok := doc["prepare"].(map[string]any)
	if !ok {
		return
	}
	entries, ok := prepare["copy_files"].([]any)
	if !ok {
		return
	}
	for _, item := range entries {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		src, ok := entry["src"].(string)
		if !ok || filepath.IsAbs(src) {
			continue
		}
		abs := filepath.Join(docDir, src)
		if rel, err := filepath.Rel(rootDir, abs); err == nil {
			entry["src"] = rel
		} else {
			entry["src"] = abs
		}
	}
}

func dedup(list []any) []any {
	seen := make(map[string]bool, len(list))
	result := make([]any, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			if seen[s] {
				continue
			}
			seen[s] = true
		}
		result = append(result, item)
	}
	return result
}

func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Join(strings.Split(strings.TrimRight(s, "\n"), "\n"), " ")
}

// decode round-trips the resolved map through YAML into the typed Config.
func decode(raw map[string]any) (*Config, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encoding resolved document: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding resolved document: %w", err)
	}
	return &cfg, nil
}
