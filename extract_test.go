package archivekit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractRoundTripsTarArchive(t *testing.T) {
	srcRoot := t.TempDir()
	writeTree(t, srcRoot, map[string]string{
		"a.txt":        "hello world, this is more than the minimum size floor for compression",
		"nested/b.txt": "another reasonably sized payload so it is not forced to Store",
	})

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	_, err := Pack(context.Background(), archivePath, srcRoot)
	require.NoError(t, err)

	dstRoot := t.TempDir()
	result, err := Extract(context.Background(), archivePath, dstRoot)
	require.NoError(t, err)
	require.Equal(t, 0, result.Failed)
	require.Equal(t, 3, result.Succeeded) // a.txt, nested/, nested/b.txt

	got, err := os.ReadFile(filepath.Join(dstRoot, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello world, this is more than the minimum size floor for compression", string(got))

	got, err = os.ReadFile(filepath.Join(dstRoot, "nested", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "another reasonably sized payload so it is not forced to Store", string(got))
}

func TestExtractRoundTripsZipArchive(t *testing.T) {
	srcRoot := t.TempDir()
	writeTree(t, srcRoot, map[string]string{"plain.txt": "some ordinary contents for a zip archive"})

	archivePath := filepath.Join(t.TempDir(), "out.zip")
	_, err := Pack(context.Background(), archivePath, srcRoot)
	require.NoError(t, err)

	dstRoot := t.TempDir()
	result, err := Extract(context.Background(), archivePath, dstRoot)
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)

	got, err := os.ReadFile(filepath.Join(dstRoot, "plain.txt"))
	require.NoError(t, err)
	require.Equal(t, "some ordinary contents for a zip archive", string(got))
}

func TestExtractRenameConflictPolicyKeepsBothFiles(t *testing.T) {
	srcRoot := t.TempDir()
	writeTree(t, srcRoot, map[string]string{"dup.txt": "the incoming archived content"})

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	_, err := Pack(context.Background(), archivePath, srcRoot)
	require.NoError(t, err)

	dstRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dstRoot, "dup.txt"), []byte("the pre-existing content"), 0o644))

	result, err := Extract(context.Background(), archivePath, dstRoot, WithExtractPolicy(ExtractionPolicy{
		OnConflict: ConflictRename,
	}))
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)

	original, err := os.ReadFile(filepath.Join(dstRoot, "dup.txt"))
	require.NoError(t, err)
	require.Equal(t, "the pre-existing content", string(original))

	renamed, err := os.ReadFile(filepath.Join(dstRoot, "dup.txt.1"))
	require.NoError(t, err)
	require.Equal(t, "the incoming archived content", string(renamed))
}

func TestExtractRejectsNonPositiveConcurrency(t *testing.T) {
	srcRoot := t.TempDir()
	writeTree(t, srcRoot, map[string]string{"a.txt": "content"})

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	_, err := Pack(context.Background(), archivePath, srcRoot)
	require.NoError(t, err)

	_, err = Extract(context.Background(), archivePath, t.TempDir(), WithExtractConcurrency(-1))
	require.ErrorIs(t, err, ErrMinConcurrency)
}
