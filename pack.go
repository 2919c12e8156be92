package archivekit

import (
	"context"
	"fmt"
	"os"

	"github.com/arclane/archivekit/internal/codec"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/container/sevenzipc"
	"github.com/arclane/archivekit/internal/container/tarc"
	"github.com/arclane/archivekit/internal/container/zipc"
	"github.com/arclane/archivekit/internal/manifest"
	"github.com/arclane/archivekit/internal/packpipe"
)

// PackResult is the aggregate outcome of a Pack call. It reports
// counts, deleted paths and the manifest location; it carries no list
// of per-entry failures.
type PackResult struct {
	Entries      int
	Bytes        int64
	Deleted      []string
	ManifestPath string
}

// Pack walks root and writes a compressed archive to archivePath,
// inferring the container format from archivePath's extension unless
// WithPackContainer overrides it. A manifest sibling file
// (archivePath + ".manifest") is always written alongside a file
// output (spec §4.5.6), and is read back first when WithPackIncremental
// is set.
func Pack(ctx context.Context, archivePath, root string, opts ...PackOption) (*PackResult, error) {
	settings := defaultPackSettings()
	if c, ok := codec.DetectContainer(archivePath, nil); ok {
		settings.container = c
	}
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	manifestPath := SiblingManifestPath(archivePath)
	var prior *manifest.Manifest
	if settings.incremental {
		if data, err := os.ReadFile(manifestPath); err == nil {
			m, err := manifest.Unmarshal(data)
			if err != nil {
				return nil, fmt.Errorf("%w: reading prior manifest %q: %w", ErrFormat, manifestPath, err)
			}
			prior = m
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %q: %w", ErrIO, archivePath, err)
	}
	defer out.Close()

	result, err := packpipe.Run(ctx, packpipe.Options{
		Root:          root,
		Sink:          out,
		Container:     settings.container,
		Strategy:      settings.config.engine(),
		Exclude:       settings.exclude,
		PriorManifest: prior,
		Concurrency:   settings.concurrency,
		StageDir:      settings.stageDir,
		Progress:      settings.progress,
	})
	if err != nil {
		os.Remove(archivePath)
		return nil, err
	}

	if err := os.WriteFile(manifestPath, mustMarshalManifest(result.Manifest), 0o644); err != nil {
		settings.logger.Warn("writing manifest sibling failed", "path", manifestPath, "error", err)
		manifestPath = ""
	}

	return &PackResult{
		Entries:      result.Entries,
		Bytes:        result.Bytes,
		Deleted:      result.Deleted,
		ManifestPath: manifestPath,
	}, nil
}

func mustMarshalManifest(m *manifest.Manifest) []byte {
	data, err := manifest.Marshal(m)
	if err != nil {
		// Marshal only fails on json.Marshal of a struct this package
		// controls; a failure here means a programming error, not
		// runtime input, so there is nothing a caller can recover from.
		panic(fmt.Sprintf("archivekit: marshalling manifest: %v", err))
	}
	return data
}

// openContainerReader opens a fresh container.Reader over an existing
// archive file at path, for the given container format. TAR needs the
// outer codec detected from the file's own header; ZIP and 7z need
// random access.
func openContainerReader(path string, c Container) (container.Reader, outerAlgoHint, error) {
	if c == ContainerSevenZip {
		rd, err := sevenzipc.Open(path)
		if err != nil {
			return nil, outerAlgoHint{}, err
		}
		return rd, outerAlgoHint{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, outerAlgoHint{}, fmt.Errorf("%w: opening %q: %w", ErrIO, path, err)
	}

	switch c {
	case ContainerTar:
		header := make([]byte, 6)
		n, _ := f.Read(header)
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return nil, outerAlgoHint{}, fmt.Errorf("%w: %w", ErrIO, err)
		}
		algo, _ := codec.DetectAlgorithm(path, header[:n])
		cr, err := codec.NewReader(f, algo)
		if err != nil {
			f.Close()
			return nil, outerAlgoHint{}, err
		}
		return &closingReader{Reader: tarc.NewReader(cr), closers: []interface {
			Close() error
		}{cr, f}}, outerAlgoHint{algo: algo}, nil

	case ContainerZip:
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, outerAlgoHint{}, fmt.Errorf("%w: %w", ErrIO, err)
		}
		zr, err := zipc.NewReader(f, info.Size())
		if err != nil {
			f.Close()
			return nil, outerAlgoHint{}, err
		}
		return &closingReader{Reader: zr, closers: []interface{ Close() error }{f}}, outerAlgoHint{}, nil

	default:
		f.Close()
		return nil, outerAlgoHint{}, fmt.Errorf("%w: cannot open %v for reading via this path", ErrUnsupported, c)
	}
}

// outerAlgoHint carries the TAR outer codec discovered while
// opening a reader, so callers (Inspect) can report a uniform
// compression-kind across every TAR entry without re-detecting it.
type outerAlgoHint struct {
	algo Algorithm
}

// closingReader ties a container.Reader to the underlying file (and,
// for TAR, the outer codec.Reader) it was opened from, so callers see
// a single handle to close.
type closingReader struct {
	container.Reader
	closers []interface{ Close() error }
}

func (c *closingReader) Close() error {
	err := c.Reader.Close()
	for _, cl := range c.closers {
		if cerr := cl.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
