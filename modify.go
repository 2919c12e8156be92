package archivekit

import (
	"context"
	"fmt"
	"os"

	"github.com/arclane/archivekit/internal/codec"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/modify"
)

// ModifyResult is the aggregate outcome of an Add or Remove call.
type ModifyResult struct {
	Kept    int
	Removed int
	Added   int
	Bytes   int64
}

// ModifySource names one filesystem file to append during Add.
type ModifySource = modify.Source

func resolveModify(archivePath string) (Container, Algorithm, error) {
	header := make([]byte, 6)
	hf, err := os.Open(archivePath)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: opening %q: %w", ErrIO, archivePath, err)
	}
	n, _ := hf.Read(header)
	hf.Close()

	c, ok := codec.DetectContainer(archivePath, header[:n])
	if !ok {
		return 0, 0, fmt.Errorf("%w: cannot determine container format for %q", ErrFormat, archivePath)
	}

	outer := Store
	if c == ContainerTar {
		algo, _ := codec.DetectAlgorithm(archivePath, header[:n])
		outer = algo
	}
	return c, outer, nil
}

func newModifyOptions(archivePath string, settings modifySettings) (modify.Options, error) {
	c, outer, err := resolveModify(archivePath)
	if err != nil {
		return modify.Options{}, err
	}

	return modify.Options{
		ArchivePath: archivePath,
		Container:   c,
		NewReader: func() (container.Reader, error) {
			rd, _, err := openContainerReader(archivePath, c)
			return rd, err
		},
		// Only the outer codec's algorithm is detected from the archive;
		// its level is not recorded in the stream, so the rewrite
		// compresses at level 0 of that codec, not the original level.
		OuterSpec:   CompressionSpec{Algorithm: outer},
		Strategy:    Config{}.engine(),
		Concurrency: settings.concurrency,
		StageDir:    settings.stageDir,
		Progress:    settings.progress,
	}, nil
}

// Remove drops every entry in the archive at archivePath whose path
// matches one of patterns, rewriting the archive in place (spec §4.7).
func Remove(ctx context.Context, archivePath string, patterns []string, opts ...ModifyOption) (*ModifyResult, error) {
	settings := defaultModifySettings()
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	modOpts, err := newModifyOptions(archivePath, settings)
	if err != nil {
		return nil, err
	}

	result, err := modify.Remove(ctx, modOpts, patterns)
	if err != nil {
		return nil, err
	}
	return &ModifyResult{Kept: result.Kept, Removed: result.Removed, Bytes: result.Bytes}, nil
}

// Add appends sources to the archive at archivePath, after every
// existing entry, rewriting the archive in place (spec §4.7).
func Add(ctx context.Context, archivePath string, sources []ModifySource, opts ...ModifyOption) (*ModifyResult, error) {
	settings := defaultModifySettings()
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	modOpts, err := newModifyOptions(archivePath, settings)
	if err != nil {
		return nil, err
	}

	result, err := modify.Add(ctx, modOpts, sources)
	if err != nil {
		return nil, err
	}
	return &ModifyResult{Kept: result.Kept, Added: result.Added, Bytes: result.Bytes}, nil
}
