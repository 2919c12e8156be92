package extractpipe

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arclane/archivekit"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/container/tarc"
)

// buildTar writes a raw, uncompressed TAR with the given name->content
// pairs, letting tests inject arbitrary (including malicious) paths.
func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: time.Now(),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func readerFactory(data []byte) func() (container.Reader, error) {
	return func() (container.Reader, error) {
		return tarc.NewReader(bytes.NewReader(data)), nil
	}
}

func TestRunExtractsFilesAndRestoresContent(t *testing.T) {
	data := buildTar(t, map[string]string{
		"a.txt":        "hello",
		"nested/b.txt": "world",
	})

	root := t.TempDir()
	result, err := Run(context.Background(), Options{
		NewReader: readerFactory(data),
		Root:      root,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Succeeded) // a.txt, nested/b.txt (parent dir is implicit mkdir, no entry)
	require.Zero(t, result.Failed)

	got, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	got, err = os.ReadFile(filepath.Join(root, "nested/b.txt"))
	require.NoError(t, err)
	require.Equal(t, "world", string(got))
}

func TestRunRejectsPathTraversal(t *testing.T) {
	data := buildTar(t, map[string]string{
		"../evil.txt": "should never land outside root",
		"safe.txt":    "this one is fine",
	})

	root := t.TempDir()
	result, err := Run(context.Background(), Options{
		NewReader: readerFactory(data),
		Root:      root,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	require.ErrorIs(t, result.Failures[0].Err, archivekit.ErrInvalidPath)

	_, err = os.Stat(filepath.Join(filepath.Dir(root), "evil.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestRunRenameConflictPolicy(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "dup.txt"), []byte("original"), 0o644))

	data := buildTar(t, map[string]string{"dup.txt": "incoming"})

	result, err := Run(context.Background(), Options{
		NewReader: readerFactory(data),
		Root:      root,
		Policy:    archivekit.ExtractionPolicy{OnConflict: archivekit.ConflictRename},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)

	original, err := os.ReadFile(filepath.Join(root, "dup.txt"))
	require.NoError(t, err)
	require.Equal(t, "original", string(original))

	renamed, err := os.ReadFile(filepath.Join(root, "dup.txt.1"))
	require.NoError(t, err)
	require.Equal(t, "incoming", string(renamed))
}

func TestRunSkipConflictPolicy(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "dup.txt"), []byte("original"), 0o644))

	data := buildTar(t, map[string]string{"dup.txt": "incoming"})

	result, err := Run(context.Background(), Options{
		NewReader: readerFactory(data),
		Root:      root,
		Policy:    archivekit.ExtractionPolicy{OnConflict: archivekit.ConflictSkip},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)

	original, err := os.ReadFile(filepath.Join(root, "dup.txt"))
	require.NoError(t, err)
	require.Equal(t, "original", string(original))
}

func TestRunStripComponents(t *testing.T) {
	data := buildTar(t, map[string]string{"top/inner/file.txt": "content"})

	root := t.TempDir()
	_, err := Run(context.Background(), Options{
		NewReader: readerFactory(data),
		Root:      root,
		Policy:    archivekit.ExtractionPolicy{StripComponents: 1},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, "inner/file.txt"))
	require.NoError(t, err)
	require.Equal(t, "content", string(got))
}
