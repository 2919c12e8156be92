package archivekit

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func inspectNames(t *testing.T, archivePath string) []string {
	t.Helper()
	entries, err := Inspect(archivePath)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Path)
	}
	sort.Strings(names)
	return names
}

func TestRemoveDropsEntriesMatchingGlobPatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.txt":     "this file should survive the removal pass",
		"skip.log":     "this file should be removed by the glob pattern",
		"nested/x.log": "this nested file should also be removed",
	})

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	_, err := Pack(context.Background(), archivePath, root)
	require.NoError(t, err)

	result, err := Remove(context.Background(), archivePath, []string{"*.log", "nested/*.log"})
	require.NoError(t, err)
	require.Equal(t, 2, result.Removed)

	names := inspectNames(t, archivePath)
	require.Contains(t, names, "keep.txt")
	require.NotContains(t, names, "skip.log")
	require.NotContains(t, names, "nested/x.log")
}

func TestAddAppendsNewEntryToExistingArchive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"old.txt": "content that already lived in the archive"})

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	_, err := Pack(context.Background(), archivePath, root)
	require.NoError(t, err)

	newFileDir := t.TempDir()
	writeTree(t, newFileDir, map[string]string{"new.txt": "brand new content being appended"})

	result, err := Add(context.Background(), archivePath, []ModifySource{
		{ArchivePath: "new.txt", FSPath: filepath.Join(newFileDir, "new.txt")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Kept)
	require.Equal(t, 1, result.Added)

	names := inspectNames(t, archivePath)
	require.Equal(t, []string{"new.txt", "old.txt"}, names)
}

func TestRemoveLeavesArchiveUntouchedOnInvalidPattern(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "content that must not be disturbed by a failed rewrite"})

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	_, err := Pack(context.Background(), archivePath, root)
	require.NoError(t, err)

	before := inspectNames(t, archivePath)

	_, err = Remove(context.Background(), archivePath, []string{"["})
	require.Error(t, err)

	after := inspectNames(t, archivePath)
	require.Equal(t, before, after)
}
