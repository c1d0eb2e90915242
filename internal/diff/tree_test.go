package diff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/containertools/envdiff/internal/snapshot"
)

// makeTree writes the given files (path -> content) under dir/label and
// returns the snapshot tree for it.
func makeTree(t *testing.T, dir, label string, files map[string]string) *snapshot.Tree {
	t.Helper()
	root := filepath.Join(dir, label)
	require.NoError(t, os.MkdirAll(root, 0o755))
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return &snapshot.Tree{Root: root, Label: label}
}

func compare(t *testing.T, omit []string, baseFiles, afterFiles map[string]string) ([]string, []string) {
	t.Helper()
	dir := t.TempDir()
	base := makeTree(t, dir, "base", baseFiles)
	after := makeTree(t, dir, "after", afterFiles)
	structural, unified, err := NewEngine(omit, zap.NewNop()).CompareTrees(base, after)
	require.NoError(t, err)
	return structural, unified
}

func TestIdenticalTreesProduceEmptyDiffs(t *testing.T) {
	files := map[string]string{
		"etc/hosts":      "localhost\n",
		"root/input.txt": "same\n",
	}
	structural, unified := compare(t, nil, files, files)
	assert.Empty(t, structural)
	assert.Empty(t, unified)
}

func TestDifferingFileContent(t *testing.T) {
	structural, unified := compare(t, nil,
		map[string]string{"etc/common.txt": "foo\n"},
		map[string]string{"etc/common.txt": "bar\n"})

	require.Equal(t, []string{"Files base/etc/common.txt and after/etc/common.txt differ"}, structural)
	require.Len(t, unified, 1)
	block := unified[0]
	assert.True(t, strings.HasPrefix(block, "diff -urN base/etc/common.txt after/etc/common.txt\n"), block)
	assert.Contains(t, block, "--- base/etc/common.txt")
	assert.Contains(t, block, "+++ after/etc/common.txt")
	assert.Contains(t, block, "-foo")
	assert.Contains(t, block, "+bar")
}

func TestFileOnlyInAfter(t *testing.T) {
	structural, unified := compare(t, nil,
		map[string]string{},
		map[string]string{"new.txt": "new\n"})

	require.Equal(t, []string{"Only in after: new.txt"}, structural)
	require.Len(t, unified, 1)
	assert.Contains(t, unified[0], "diff -urN base/new.txt after/new.txt")
	assert.Contains(t, unified[0], "+new")
}

func TestDirectoryOnlyInAfterIsOneStructuralLine(t *testing.T) {
	structural, unified := compare(t, nil,
		map[string]string{"root/keep.txt": "x\n"},
		map[string]string{
			"root/keep.txt":       "x\n",
			"root/test/tmp":       "hello\n",
			"root/test/inner/one": "1\n",
		})

	require.Equal(t, []string{"Only in after/root: test"}, structural,
		"descendants of a one-sided directory are suppressed structurally")

	// Every file beneath it still gets a unified diff against empty.
	require.Len(t, unified, 2)
	assert.Contains(t, unified[0], "diff -urN base/root/test/inner/one after/root/test/inner/one")
	assert.Contains(t, unified[1], "diff -urN base/root/test/tmp after/root/test/tmp")
	assert.Contains(t, unified[1], "+hello")
}

func TestOneSidedDirectoryWithSiblingSortingBetween(t *testing.T) {
	// "." sorts before "/", so a/b.txt is walked between directory a/b and
	// its children; suppression of a/b's descendants must survive that.
	structural, unified := compare(t, nil,
		map[string]string{"a/b.txt": "same\n"},
		map[string]string{
			"a/b.txt": "same\n",
			"a/b/c":   "inside\n",
		})

	require.Equal(t, []string{"Only in after/a: b"}, structural)
	require.Len(t, unified, 1)
	assert.Contains(t, unified[0], "diff -urN base/a/b/c after/a/b/c")
	assert.Contains(t, unified[0], "+inside")
}

func TestFileOnlyInBase(t *testing.T) {
	structural, unified := compare(t, nil,
		map[string]string{"etc/old.conf": "old\n"},
		map[string]string{})

	require.Equal(t, []string{"Only in base/etc: old.conf"}, structural)
	require.Len(t, unified, 1)
	assert.Contains(t, unified[0], "-old")
}

func TestOmitDiffPathsSuppressBodyNotStructural(t *testing.T) {
	structural, unified := compare(t, []string{"/root/input.yaml"},
		map[string]string{"root/input.yaml": "a: 1\n", "root/other": "x\n"},
		map[string]string{"root/input.yaml": "a: 2\n", "root/other": "y\n"})

	assert.Contains(t, structural, "Files base/root/input.yaml and after/root/input.yaml differ")

	var omittedBlock, otherBlock string
	for _, block := range unified {
		if strings.Contains(block, "input.yaml") {
			omittedBlock = block
		} else {
			otherBlock = block
		}
	}
	assert.Equal(t, "diff -urN base/root/input.yaml after/root/input.yaml (omitted)", omittedBlock)
	assert.NotContains(t, omittedBlock, "a: 1")
	assert.Contains(t, otherBlock, "-x")
}

func TestOmitPrefixIsComponentAware(t *testing.T) {
	_, unified := compare(t, []string{"/root/in"},
		map[string]string{"root/input.yaml": "a\n"},
		map[string]string{"root/input.yaml": "b\n"})

	require.Len(t, unified, 1)
	assert.NotContains(t, unified[0], omissionNotice,
		"/root/in must not omit /root/input.yaml")
}

func TestBinaryContentsReportedAsNotice(t *testing.T) {
	structural, unified := compare(t, nil,
		map[string]string{"usr/bin/tool": "ELF\x00v1"},
		map[string]string{"usr/bin/tool": "ELF\x00v2"})

	require.Equal(t, []string{"Files base/usr/bin/tool and after/usr/bin/tool differ"}, structural)
	require.Len(t, unified, 1)
	assert.Contains(t, unified[0], "Binary files base/usr/bin/tool and after/usr/bin/tool differ")
	assert.NotContains(t, unified[0], "@@")
}

func TestSymlinkTargetChange(t *testing.T) {
	dir := t.TempDir()
	base := makeTree(t, dir, "base", nil)
	after := makeTree(t, dir, "after", nil)
	require.NoError(t, os.Symlink("/usr/bin/python3.9", filepath.Join(base.Root, "python")))
	require.NoError(t, os.Symlink("/usr/bin/python3.12", filepath.Join(after.Root, "python")))

	structural, unified, err := NewEngine(nil, zap.NewNop()).CompareTrees(base, after)
	require.NoError(t, err)
	require.Equal(t, []string{"Files base/python and after/python differ"}, structural)
	require.Len(t, unified, 1)
	assert.Contains(t, unified[0], "-/usr/bin/python3.9")
	assert.Contains(t, unified[0], "+/usr/bin/python3.12")
}

func TestStructuralLinesOrderedByPath(t *testing.T) {
	structural, _ := compare(t, nil,
		map[string]string{
			"a/gone.txt":   "x\n",
			"m/change.txt": "1\n",
		},
		map[string]string{
			"m/change.txt": "2\n",
			"z/new.txt":    "y\n",
		})

	require.Equal(t, []string{
		"Only in base: a",
		"Files base/m/change.txt and after/m/change.txt differ",
		"Only in after: z",
	}, structural)
}

func TestWorkedExampleShape(t *testing.T) {
	structural, unified := compare(t, []string{"/root/input.yaml"},
		map[string]string{
			"root/input.yaml": "base_image: quay.io/almalinuxorg/9-base:9.5\n",
			"tmp/test":        "test\n",
		},
		map[string]string{
			"root/input.yaml": "base_image: quay.io/almalinuxorg/9-base:9.5\nappended: true\n",
			"tmp/test":        "test\n",
			"root/test/tmp":   "marker\n",
		})

	assert.Contains(t, structural, "Files base/root/input.yaml and after/root/input.yaml differ")
	assert.Contains(t, structural, "Only in after/root: test")
	require.Len(t, structural, 2)

	var sawOmitted, sawMarker bool
	for _, block := range unified {
		if block == "diff -urN base/root/input.yaml after/root/input.yaml (omitted)" {
			sawOmitted = true
		}
		if strings.Contains(block, "root/test/tmp") && strings.Contains(block, "+marker") {
			sawMarker = true
		}
	}
	assert.True(t, sawOmitted, "input.yaml unified diff must be omitted")
	assert.True(t, sawMarker, "new file under one-sided dir must have a unified diff")
}
