// Package extractpipe implements the extract pipeline's per-entry
// state machine (spec §4.6): ReadHeader -> Sanitise -> ResolveConflict
// -> CreateParentDirs -> WriteBody -> RestoreMetadata -> Done. It
// directly generalizes saracen/fastzip's extractor.go three-phase
// extraction (files concurrently, symlinks deferred, directory
// metadata last) from a ZIP-only reader into the container-agnostic
// container.Reader seam, adding conflict resolution and the
// compression-bomb guard the teacher never needed.
package extractpipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arclane/archivekit"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/pathsafe"
	"github.com/arclane/archivekit/progress"
)

const defaultConcurrency = 8

// Options configures one Extract run.
type Options struct {
	// NewReader opens a fresh container.Reader positioned at the
	// start of the archive. It is called once for the real extraction
	// pass and, when Policy.Hoist is set, once before that to collect
	// entry names for hoist-prefix detection, since container.Reader is
	// forward-only.
	NewReader func() (container.Reader, error)
	Root      string
	Policy    archivekit.ExtractionPolicy

	// ArchiveCompressedSize is the on-disk size of the archive file,
	// used as the denominator for the compression-bomb guard (spec
	// §4.3.7): a small archive that expands to a huge output trips the
	// ratio check even though no single entry's own compressed size is
	// visible through the container.Reader seam. Zero disables the
	// check (e.g. extracting from a stream of unknown length).
	ArchiveCompressedSize int64

	Concurrency int
	ChownWarn   func(error)
	Progress    progress.Reporter
}

// Result is the outcome of an extract run. Failures being non-empty
// is a partial failure, distinct from Run returning a non-nil error
// (spec §7: "distinguishes total failure from partial").
type Result struct {
	Succeeded int
	Skipped   int
	Failed    int
	Failures  []archivekit.FailedEntry
}

type deferredDir struct {
	path string
	meta pathsafe.Metadata
}

type deferredSymlink struct {
	entry  *archivekit.Entry
	target string
}

// Run executes the pipeline described by opts.
func Run(ctx context.Context, opts Options) (*Result, error) {
	reporter := opts.Progress
	if reporter == nil {
		reporter = progress.Nop{}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	absRoot, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0o777); err != nil {
		return nil, fmt.Errorf("%w: creating extraction root: %w", archivekit.ErrIO, err)
	}

	pathOpts := pathsafe.Options{StripComponents: opts.Policy.StripComponents, Hoist: opts.Policy.Hoist}
	if opts.Policy.Hoist {
		names, err := collectNames(opts.NewReader)
		if err != nil {
			return nil, err
		}
		if prefix, ok := pathsafe.DetectHoistPrefix(names); ok {
			pathOpts.HoistPrefix = prefix
		} else {
			pathOpts.Hoist = false
		}
	}

	rd, err := opts.NewReader()
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive: %w", archivekit.ErrIO, err)
	}
	defer rd.Close()

	bomb := pathsafe.NewBombGuard(opts.Policy.ResolvedBombRatio(), opts.Policy.ResolvedBombMinBytes())

	result := &Result{}
	var resultMu sync.Mutex
	recordFailure := func(path string, err error) {
		resultMu.Lock()
		result.Failed++
		result.Failures = append(result.Failures, archivekit.FailedEntry{Path: path, Err: err})
		resultMu.Unlock()
	}
	recordSkip := func() {
		resultMu.Lock()
		result.Skipped++
		resultMu.Unlock()
	}
	recordSuccess := func() {
		resultMu.Lock()
		result.Succeeded++
		resultMu.Unlock()
	}

	var uncompressedTotal int64
	latch := &conflictLatch{}
	sem := make(chan struct{}, concurrency)
	g, gctx := errgroup.WithContext(ctx)

	var dirs []deferredDir
	var symlinks []deferredSymlink

	reporter.Start(0, "extract")
	defer reporter.Finish()

	for {
		if ctx.Err() != nil {
			g.Wait()
			return nil, fmt.Errorf("%w", archivekit.ErrCancelled)
		}

		e, nerr := rd.Next()
		if nerr != nil {
			if errors.Is(nerr, io.EOF) {
				break
			}
			g.Wait()
			return nil, fmt.Errorf("%w: reading next entry: %w", archivekit.ErrIO, nerr)
		}

		cleaned, ok, serr := pathsafe.Sanitize(e.Path, pathOpts)
		if serr != nil {
			recordFailure(e.Path, serr)
			continue
		}
		if !ok {
			continue // dropped by strip-components/hoist, not a failure
		}

		target, terr := pathsafe.ResolveTarget(absRoot, cleaned)
		if terr != nil {
			recordFailure(e.Path, terr)
			continue
		}

		switch e.Kind {
		case archivekit.KindDirectory:
			if err := os.MkdirAll(target, 0o777); err != nil {
				recordFailure(e.Path, err)
				continue
			}
			dirs = append(dirs, deferredDir{path: target, meta: metadataOf(e)})
			recordSuccess()

		case archivekit.KindSymlink, archivekit.KindHardlink:
			symlinks = append(symlinks, deferredSymlink{entry: e, target: target})

		default:
			uncompressedTotal += e.Size
			if opts.ArchiveCompressedSize > 0 && bomb.Check(uncompressedTotal, opts.ArchiveCompressedSize) {
				g.Wait()
				return nil, fmt.Errorf("%w: extraction exceeded configured ratio after %q", archivekit.ErrCompressionBomb, e.Path)
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
				recordFailure(e.Path, err)
				continue
			}

			action, finalTarget, rerr := resolveConflict(target, opts.Policy, latch)
			if rerr != nil {
				recordFailure(e.Path, rerr)
				continue
			}
			if action == actionSkip {
				recordSkip()
				continue
			}

			entryPath, body, meta, size := e.Path, e.Reader, metadataOf(e), e.Size
			sem <- struct{}{}
			g.Go(func() error {
				defer func() { <-sem }()
				if err := writeFile(gctx, finalTarget, body); err != nil {
					recordFailure(entryPath, err)
					return nil
				}
				if err := pathsafe.Restore(finalTarget, meta, opts.ChownWarn); err != nil {
					recordFailure(entryPath, err)
					return nil
				}
				reporter.Update(size)
				recordSuccess()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range symlinks {
		if err := createSymlink(absRoot, s, opts.Policy, latch, opts.ChownWarn); err != nil {
			recordFailure(s.entry.Path, err)
			continue
		}
		recordSuccess()
	}

	for _, d := range dirs {
		if err := pathsafe.Restore(d.path, d.meta, opts.ChownWarn); err != nil {
			recordFailure(d.path, err)
		}
	}

	return result, nil
}

func metadataOf(e *archivekit.Entry) pathsafe.Metadata {
	return pathsafe.Metadata{
		Mode:         fileModeOf(e.Mode),
		ModTime:      e.ModTime,
		HasTime:      e.HasTime,
		UID:          e.UID,
		GID:          e.GID,
		HasOwnership: e.HasOwnership,
	}
}

// collectNames runs a throwaway pass over the archive purely to build
// the name list DetectHoistPrefix needs (spec §4.3.3). container.Reader
// is forward-only, so this requires its own fresh reader.
func collectNames(newReader func() (container.Reader, error)) ([]string, error) {
	rd, err := newReader()
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive for hoist detection: %w", archivekit.ErrIO, err)
	}
	defer rd.Close()

	var names []string
	for {
		e, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", archivekit.ErrIO, err)
		}
		names = append(names, e.Path)
	}
	return names, nil
}
