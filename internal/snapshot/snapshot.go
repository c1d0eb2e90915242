// Package snapshot captures a session's exported target directories as a
// local tree and applies exclusion pruning before the diff engine sees it.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Exporter is the session capability snapshot capture needs.
type Exporter interface {
	Export(ctx context.Context, targetDirs []string, hostDir string) error
}

// Tree is a local directory tree mirroring one session's exported target
// directories, rooted under a role-labeled prefix. It exists only for the
// duration of diff computation.
type Tree struct {
	Root  string // local filesystem root of the exported tree
	Label string // role label, used as the path prefix in diff output
}

// Capture exports targetDirs from the session into baseDir/<label> and
// removes every excluded path. Exclusions are applied symmetrically to both
// sessions by the orchestrator, so excluded content never appears in either
// snapshot.
func Capture(ctx context.Context, exp Exporter, label, baseDir string, targetDirs, excludePaths []string, logger *zap.Logger) (*Tree, error) {
	root := filepath.Join(baseDir, label)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot root %s: %w", root, err)
	}
	if len(targetDirs) > 0 {
		if err := exp.Export(ctx, targetDirs, root); err != nil {
			return nil, err
		}
	}
	if err := pruneExcluded(root, excludePaths, logger); err != nil {
		return nil, err
	}
	return &Tree{Root: root, Label: label}, nil
}

// pruneExcluded removes the subtree rooted at each exclusion entry.
// Matching is path-component aware: /var/log covers /var/log and
// everything under it, but not /var/log2.
func pruneExcluded(root string, excludePaths []string, logger *zap.Logger) error {
	for _, entry := range excludePaths {
		rel := strings.TrimPrefix(filepath.Clean("/"+entry), "/")
		if rel == "" {
			continue
		}
		target := filepath.Join(root, rel)
		if !strings.HasPrefix(target, root+string(filepath.Separator)) {
			continue
		}
		if _, err := os.Lstat(target); err != nil {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("prune excluded path %s: %w", entry, err)
		}
		logger.Debug("pruned excluded path",
			zap.String("snapshot", filepath.Base(root)),
			zap.String("path", entry))
	}
	return nil
}
