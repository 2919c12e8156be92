package archivekit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspectReportsUniformCompressionForTar(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":        "hello world, this is more than the minimum size floor for compression",
		"nested/b.txt": "another reasonably sized payload so it is not forced to Store",
	})

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	_, err := Pack(context.Background(), archivePath, root)
	require.NoError(t, err)

	entries, err := Inspect(archivePath)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		require.Equal(t, entries[0].Compression, e.Compression)
	}
}

func TestInspectReportsZipEntriesWithoutExtracting(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"plain.txt": "some ordinary contents for a zip archive"})

	archivePath := filepath.Join(t.TempDir(), "out.zip")
	_, err := Pack(context.Background(), archivePath, root)
	require.NoError(t, err)

	entries, err := Inspect(archivePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "plain.txt", entries[0].Path)
	require.Equal(t, "file", entries[0].Kind)
}

func TestInspectIsDeterministicAcrossCalls(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt": "first file contents, long enough to not be forced into Store",
		"b.txt": "second file contents, also long enough to avoid the Store floor",
	})

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	_, err := Pack(context.Background(), archivePath, root)
	require.NoError(t, err)

	first, err := Inspect(archivePath)
	require.NoError(t, err)
	second, err := Inspect(archivePath)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
