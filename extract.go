package archivekit

import (
	"context"
	"fmt"
	"os"

	"github.com/arclane/archivekit/internal/codec"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/extractpipe"
)

// ExtractResult is the aggregate outcome of an Extract call.
type ExtractResult struct {
	Succeeded int
	Skipped   int
	Failed    int
	Failures  []FailedEntry
}

// Extract reads the archive at archivePath and writes its contents
// under root, inferring the container format from archivePath's
// extension (falling back to magic-byte sniffing). Failed returning
// non-zero in the result is a partial failure (spec §7); Extract
// itself only returns a non-nil error for total/fatal conditions
// (cancellation, a tripped compression-bomb guard, or an unreadable
// archive).
func Extract(ctx context.Context, archivePath, root string, opts ...ExtractOption) (*ExtractResult, error) {
	settings := defaultExtractSettings()
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	header := make([]byte, 6)
	hf, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrIO, archivePath, err)
	}
	n, _ := hf.Read(header)
	hf.Close()

	c, ok := codec.DetectContainer(archivePath, header[:n])
	if !ok {
		return nil, fmt.Errorf("%w: cannot determine container format for %q", ErrFormat, archivePath)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	chownWarn := settings.chownWarn
	if chownWarn == nil {
		chownWarn = func(err error) {
			settings.logger.Warn("restoring ownership failed", "error", err)
		}
	}

	result, err := extractpipe.Run(ctx, extractpipe.Options{
		NewReader: func() (container.Reader, error) {
			rd, _, err := openContainerReader(archivePath, c)
			return rd, err
		},
		Root:                  root,
		Policy:                settings.policy,
		ArchiveCompressedSize: info.Size(),
		Concurrency:           settings.concurrency,
		ChownWarn:             chownWarn,
		Progress:              settings.progress,
	})
	if err != nil {
		return nil, err
	}

	return &ExtractResult{
		Succeeded: result.Succeeded,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
		Failures:  result.Failures,
	}, nil
}
