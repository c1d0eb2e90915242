package diff

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/containertools/envdiff/internal/snapshot"
)

type kind int

const (
	kindFile kind = iota
	kindDir
	kindSymlink
	kindOther // devices, sockets, fifos: listed but never content-compared
)

func (k kind) String() string {
	switch k {
	case kindFile:
		return "regular file"
	case kindDir:
		return "directory"
	case kindSymlink:
		return "symbolic link"
	default:
		return "special file"
	}
}

// CompareTrees walks both snapshot trees in lexicographic path order and
// returns the structural diff lines and the unified diff blocks. Paths with
// identical content produce no output.
func (e *Engine) CompareTrees(base, after *snapshot.Tree) (structural []string, unified []string, err error) {
	baseNodes, err := collect(base.Root)
	if err != nil {
		return nil, nil, &Error{Op: "walk " + base.Label, Err: err}
	}
	afterNodes, err := collect(after.Root)
	if err != nil {
		return nil, nil, &Error{Op: "walk " + after.Label, Err: err}
	}

	structural = []string{}
	unified = []string{}

	// When a directory exists on one side only (or changed type), its
	// descendants are suppressed from the structural diff; files beneath a
	// one-sided directory still get unified diffs against empty content.
	// Skips accumulate rather than reset: "." sorts before "/", so a sibling
	// like a/b.txt is walked between directory a/b and its children.
	var skips skipSet

	for _, rel := range sortedUnion(baseNodes, afterNodes) {
		if suppressUnified, ok := skips.match(rel); ok {
			if suppressUnified {
				continue
			}
			if baseNodes[rel] == kindFile && hasNode(baseNodes, rel) {
				block, err := e.oneSidedBlock(base.Label, after.Label, rel, filepath.Join(base.Root, rel), true)
				if err != nil {
					return nil, nil, err
				}
				unified = append(unified, block)
			}
			if afterNodes[rel] == kindFile && hasNode(afterNodes, rel) {
				block, err := e.oneSidedBlock(base.Label, after.Label, rel, filepath.Join(after.Root, rel), false)
				if err != nil {
					return nil, nil, err
				}
				unified = append(unified, block)
			}
			continue
		}

		baseKind, inBase := baseNodes[rel]
		afterKind, inAfter := afterNodes[rel]

		switch {
		case inBase && inAfter:
			if baseKind == kindDir && afterKind == kindDir {
				continue
			}
			if baseKind != afterKind {
				structural = append(structural, e.differLine(base.Label, after.Label, rel))
				unified = append(unified, e.typeChangeBlock(base.Label, after.Label, rel, baseKind, afterKind))
				if baseKind == kindDir || afterKind == kindDir {
					skips.add(rel, true)
				}
				continue
			}
			same, block, err := e.comparePair(base, after, rel, baseKind)
			if err != nil {
				return nil, nil, err
			}
			if !same {
				structural = append(structural, e.differLine(base.Label, after.Label, rel))
				unified = append(unified, block)
			}

		case inBase:
			structural = append(structural, onlyInLine(base.Label, rel))
			if baseKind == kindDir {
				skips.add(rel, false)
			} else if baseKind == kindFile {
				block, err := e.oneSidedBlock(base.Label, after.Label, rel, filepath.Join(base.Root, rel), true)
				if err != nil {
					return nil, nil, err
				}
				unified = append(unified, block)
			}

		default:
			structural = append(structural, onlyInLine(after.Label, rel))
			if afterKind == kindDir {
				skips.add(rel, false)
			} else if afterKind == kindFile {
				block, err := e.oneSidedBlock(base.Label, after.Label, rel, filepath.Join(after.Root, rel), false)
				if err != nil {
					return nil, nil, err
				}
				unified = append(unified, block)
			}
		}
	}

	e.logger.Info("filesystem diff computed",
		zap.Int("structural_lines", len(structural)),
		zap.Int("unified_blocks", len(unified)))
	return structural, unified, nil
}

// comparePair diffs a path present on both sides with the same kind.
func (e *Engine) comparePair(base, after *snapshot.Tree, rel string, k kind) (same bool, block string, err error) {
	basePath := filepath.Join(base.Root, rel)
	afterPath := filepath.Join(after.Root, rel)

	switch k {
	case kindSymlink:
		baseTarget, err := os.Readlink(basePath)
		if err != nil {
			return false, "", &Error{Op: "readlink", Err: err}
		}
		afterTarget, err := os.Readlink(afterPath)
		if err != nil {
			return false, "", &Error{Op: "readlink", Err: err}
		}
		if baseTarget == afterTarget {
			return true, "", nil
		}
		block, err = e.contentBlock(base.Label, after.Label, rel,
			[]byte(baseTarget+"\n"), []byte(afterTarget+"\n"))
		return false, block, err

	case kindFile:
		baseContent, err := os.ReadFile(basePath)
		if err != nil {
			return false, "", &Error{Op: "read " + base.Label, Err: err}
		}
		afterContent, err := os.ReadFile(afterPath)
		if err != nil {
			return false, "", &Error{Op: "read " + after.Label, Err: err}
		}
		if bytes.Equal(baseContent, afterContent) {
			return true, "", nil
		}
		block, err = e.contentBlock(base.Label, after.Label, rel, baseContent, afterContent)
		return false, block, err

	default:
		// Special files carry no comparable content.
		return true, "", nil
	}
}

// contentBlock builds one unified diff block for a path that differs,
// honoring omission and binary rules.
func (e *Engine) contentBlock(baseLabel, afterLabel, rel string, baseContent, afterContent []byte) (string, error) {
	header := fmt.Sprintf("diff -urN %s/%s %s/%s", baseLabel, rel, afterLabel, rel)
	if e.omitted(rel) {
		return header + " " + omissionNotice, nil
	}
	if isBinary(baseContent) || isBinary(afterContent) {
		return header + "\n" + fmt.Sprintf("Binary files %s/%s and %s/%s differ", baseLabel, rel, afterLabel, rel), nil
	}
	body, err := unifiedBody(string(baseContent), string(afterContent),
		baseLabel+"/"+rel, afterLabel+"/"+rel)
	if err != nil {
		return "", err
	}
	return header + "\n" + body, nil
}

// oneSidedBlock diffs a file that exists on one side only against empty
// content (diff -N semantics).
func (e *Engine) oneSidedBlock(baseLabel, afterLabel, rel, realPath string, inBase bool) (string, error) {
	content, err := os.ReadFile(realPath)
	if err != nil {
		return "", &Error{Op: "read", Err: err}
	}
	if inBase {
		return e.contentBlock(baseLabel, afterLabel, rel, content, nil)
	}
	return e.contentBlock(baseLabel, afterLabel, rel, nil, content)
}

func (e *Engine) typeChangeBlock(baseLabel, afterLabel, rel string, baseKind, afterKind kind) string {
	header := fmt.Sprintf("diff -urN %s/%s %s/%s", baseLabel, rel, afterLabel, rel)
	if e.omitted(rel) {
		return header + " " + omissionNotice
	}
	return header + "\n" + fmt.Sprintf("File %s/%s is a %s while file %s/%s is a %s",
		baseLabel, rel, baseKind, afterLabel, rel, afterKind)
}

func (e *Engine) differLine(baseLabel, afterLabel, rel string) string {
	return fmt.Sprintf("Files %s/%s and %s/%s differ", baseLabel, rel, afterLabel, rel)
}

func onlyInLine(label, rel string) string {
	dir, name := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		return fmt.Sprintf("Only in %s: %s", label, name)
	}
	return fmt.Sprintf("Only in %s/%s: %s", label, dir, name)
}

// collect maps every path under root (excluding root itself) to its kind.
// Keys are slash-separated paths relative to root.
func collect(root string) (map[string]kind, error) {
	nodes := map[string]kind{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		switch {
		case d.IsDir():
			nodes[rel] = kindDir
		case d.Type()&fs.ModeSymlink != 0:
			nodes[rel] = kindSymlink
		case d.Type().IsRegular():
			nodes[rel] = kindFile
		default:
			nodes[rel] = kindOther
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// skipSet holds the directory prefixes whose descendants are suppressed
// from the structural diff. Entries stay active for the rest of the walk:
// lexicographic order interleaves a directory's children with siblings
// whose names sort between "." and "/" variants of the same stem.
type skipSet struct {
	entries []skipEntry
}

type skipEntry struct {
	prefix          string // directory rel path plus trailing "/"
	suppressUnified bool   // type changes suppress unified blocks too
}

func (s *skipSet) add(rel string, suppressUnified bool) {
	s.entries = append(s.entries, skipEntry{prefix: rel + "/", suppressUnified: suppressUnified})
}

// match reports whether rel falls under any recorded prefix.
func (s *skipSet) match(rel string) (suppressUnified, ok bool) {
	for _, entry := range s.entries {
		if strings.HasPrefix(rel, entry.prefix) {
			return entry.suppressUnified, true
		}
	}
	return false, false
}

func hasNode(nodes map[string]kind, rel string) bool {
	_, ok := nodes[rel]
	return ok
}

func sortedUnion(a, b map[string]kind) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// isBinary applies the usual heuristic: a NUL byte in the first 8000 bytes.
func isBinary(content []byte) bool {
	probe := content
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) != -1
}
