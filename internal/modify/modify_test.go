package modify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arclane/archivekit"
	"github.com/arclane/archivekit/internal/codec"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/container/tarc"
	"github.com/arclane/archivekit/internal/container/zipc"
	"github.com/arclane/archivekit/internal/packpipe"
	"github.com/arclane/archivekit/internal/strategy"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func writeTar(t *testing.T, path string, files map[string]string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = packpipe.Run(context.Background(), packpipe.Options{
		Root:      root,
		Sink:      f,
		Container: archivekit.ContainerTar,
	})
	require.NoError(t, err)
}

func newReaderFactory(path string) func() (container.Reader, error) {
	return func() (container.Reader, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		cr, err := codec.NewReader(f, archivekit.Store)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &closingReader{Reader: tarc.NewReader(cr), f: f}, nil
	}
}

// closingReader ties the file descriptor opened for one archive pass
// to the container.Reader's own Close, so callers see a single handle
// to manage.
type closingReader struct {
	container.Reader
	f *os.File
}

func (c *closingReader) Close() error {
	c.Reader.Close()
	return c.f.Close()
}

func readNames(t *testing.T, path string) []string {
	t.Helper()
	rd, err := newReaderFactory(path)()
	require.NoError(t, err)
	defer rd.Close()

	var names []string
	for {
		e, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, e.Path)
	}
	sort.Strings(names)
	return names
}

func TestRemoveDropsMatchingEntries(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.tar")
	writeTar(t, archivePath, map[string]string{
		"keep.txt":     "keep me",
		"drop.log":     "drop me",
		"nested/a.log": "also drop",
	})

	result, err := Remove(context.Background(), Options{
		ArchivePath: archivePath,
		Container:   archivekit.ContainerTar,
		NewReader:   newReaderFactory(archivePath),
	}, []string{"*.log", "nested/*.log"})
	require.NoError(t, err)
	require.Equal(t, 2, result.Removed)
	require.Equal(t, 2, result.Kept) // keep.txt and the nested/ directory entry

	names := readNames(t, archivePath)
	require.Equal(t, []string{"keep.txt", "nested/"}, names)
}

func TestAddAppendsNewEntriesAfterExisting(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.tar")
	writeTar(t, archivePath, map[string]string{"old.txt": "already here"})

	newFile := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(newFile, []byte("fresh content"), 0o644))

	result, err := Add(context.Background(), Options{
		ArchivePath: archivePath,
		Container:   archivekit.ContainerTar,
		NewReader:   newReaderFactory(archivePath),
	}, []Source{{ArchivePath: "new.txt", FSPath: newFile}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Kept)
	require.Equal(t, 1, result.Added)

	rd, err := newReaderFactory(archivePath)()
	require.NoError(t, err)
	defer rd.Close()
	var names []string
	for {
		e, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, e.Path)
	}
	require.Equal(t, []string{"old.txt", "new.txt"}, names)
}

func TestAddHandlesMoreSourcesThanConcurrency(t *testing.T) {
	// Regression test: the producer loop must not share a goroutine with
	// the consumer loop that frees staging buffers, or Add deadlocks once
	// more than ~2x concurrency sources are in flight.
	const concurrency = 2
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.tar")
	writeTar(t, archivePath, map[string]string{"old.txt": "already here"})

	sourcesDir := t.TempDir()
	var sources []Source
	for i := 0; i < 5*concurrency; i++ {
		name := fmt.Sprintf("new%02d.txt", i)
		path := filepath.Join(sourcesDir, name)
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("fresh content number %02d", i)), 0o644))
		sources = append(sources, Source{ArchivePath: name, FSPath: path})
	}

	result, err := Add(context.Background(), Options{
		ArchivePath: archivePath,
		Container:   archivekit.ContainerTar,
		NewReader:   newReaderFactory(archivePath),
		Concurrency: concurrency,
	}, sources)
	require.NoError(t, err)
	require.Equal(t, 1, result.Kept)
	require.Equal(t, len(sources), result.Added)

	names := readNames(t, archivePath)
	require.Len(t, names, 1+len(sources))
}

func TestAddRejectsExplicitNonZipCodecBeforeRewriting(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.zip")

	root := t.TempDir()
	writeTree(t, root, map[string]string{"old.txt": "already here, zipped"})
	f, err := os.Create(archivePath)
	require.NoError(t, err)
	_, err = packpipe.Run(context.Background(), packpipe.Options{
		Root:      root,
		Sink:      f,
		Container: archivekit.ContainerZip,
	})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	before, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	newFile := filepath.Join(dir, "new.bin")
	bigContent := bytes.Repeat([]byte("fresh content well above the default minimum size floor. "), 32)
	require.NoError(t, os.WriteFile(newFile, bigContent, 0o644))

	_, err = Add(context.Background(), Options{
		ArchivePath: archivePath,
		Container:   archivekit.ContainerZip,
		NewReader: func() (container.Reader, error) {
			f, err := os.Open(archivePath)
			if err != nil {
				return nil, err
			}
			info, err := f.Stat()
			if err != nil {
				f.Close()
				return nil, err
			}
			zr, err := zipc.NewReader(f, info.Size())
			if err != nil {
				f.Close()
				return nil, err
			}
			return &closingReader{Reader: zr, f: f}, nil
		},
		Strategy: strategy.New(strategy.Config{
			Rules: []strategy.Rule{{Extensions: []string{"bin"}, Algorithm: archivekit.Brotli}},
		}),
	}, []Source{{ArchivePath: "new.bin", FSPath: newFile}})
	require.ErrorIs(t, err, archivekit.ErrUnsupported)

	after, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	require.True(t, bytes.Equal(before, after))
}

func TestRemoveLeavesOriginalUntouchedOnInvalidPattern(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.tar")
	writeTar(t, archivePath, map[string]string{"a.txt": "content"})

	before, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	badPattern := []string{"["} // invalid glob, Remove must fail before touching the archive
	_, err = Remove(context.Background(), Options{
		ArchivePath: archivePath,
		Container:   archivekit.ContainerTar,
		NewReader:   newReaderFactory(archivePath),
	}, badPattern)
	require.Error(t, err)

	after, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	require.True(t, bytes.Equal(before, after))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1) // no leftover temp file
}
