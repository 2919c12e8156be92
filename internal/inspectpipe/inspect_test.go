package inspectpipe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arclane/archivekit"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/container/tarc"
	"github.com/arclane/archivekit/internal/container/zipc"
	"github.com/arclane/archivekit/internal/packpipe"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestRunEnumeratesTarEntriesWithUniformCompression(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello", "nested/b.txt": "world"})

	var buf bytes.Buffer
	_, err := packpipe.Run(context.Background(), packpipe.Options{
		Root:      root,
		Sink:      &buf,
		Container: archivekit.ContainerTar,
	})
	require.NoError(t, err)

	data := buf.Bytes()
	entries, err := Run(Options{
		NewReader: func() (container.Reader, error) {
			return tarc.NewReader(bytes.NewReader(data)), nil
		},
		Container:      archivekit.ContainerTar,
		OuterAlgorithm: archivekit.Store,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3) // a.txt, nested/, nested/b.txt
	for _, e := range entries {
		require.Equal(t, "store", e.Compression)
	}
	require.Equal(t, "file", entries[0].Kind)
	require.Equal(t, "directory", entries[1].Kind)
	require.Equal(t, "file", entries[2].Kind)
}

func TestRunEnumeratesZipEntriesWithPerEntryCompression(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello"})

	var buf bytes.Buffer
	_, err := packpipe.Run(context.Background(), packpipe.Options{
		Root:      root,
		Sink:      &buf,
		Container: archivekit.ContainerZip,
	})
	require.NoError(t, err)

	data := buf.Bytes()
	entries, err := Run(Options{
		NewReader: func() (container.Reader, error) {
			return zipc.NewReader(bytes.NewReader(data), int64(len(data)))
		},
		Container: archivekit.ContainerZip,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a.txt", entries[0].Path)
	require.Equal(t, "store", entries[0].Compression)
}
