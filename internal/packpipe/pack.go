// Package packpipe implements the pack pipeline (spec §4.5): walk an
// input tree, filter it, ask the strategy engine for a compression
// spec per entry, reconcile that spec against the target container,
// and stream entries into a container/codec sink. Concurrency is
// modeled after the teacher's two complementary patterns: Archive's
// sorted single-pass iteration (saracen/fastzip's archiver.go) for
// ordering, and the extractor's errgroup/semaphore-channel pool for
// the concurrent read+hash stage.
package packpipe

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/arclane/archivekit"
	"github.com/arclane/archivekit/internal/codec"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/container/tarc"
	"github.com/arclane/archivekit/internal/container/zipc"
	"github.com/arclane/archivekit/internal/manifest"
	"github.com/arclane/archivekit/internal/stage"
	"github.com/arclane/archivekit/internal/strategy"
	"github.com/arclane/archivekit/progress"
)

const defaultConcurrency = 8

// resultChannelCapacity is the bounded channel the spec calls out by
// name (§4.5: "entries join a bounded channel (capacity 64 by
// default)").
const resultChannelCapacity = 64

// Options configures one Pack run.
type Options struct {
	Root      string
	Sink      io.Writer
	Container archivekit.Container

	// OuterSpec pins the TAR outer codec explicitly. Nil lets the
	// pipeline auto-select the per-entry decision shared by the most
	// regular files (spec §4.5.4); file sizes do not weigh in. Ignored
	// for ZIP.
	OuterSpec *archivekit.CompressionSpec

	Strategy *strategy.Engine
	Exclude  []string

	// PriorManifest enables incremental mode (spec §4.5.3/§4.8): files
	// whose hash and size are unchanged are recorded in the returned
	// manifest but excluded from the archive body.
	PriorManifest *manifest.Manifest

	Concurrency int
	StageDir    string

	Progress progress.Reporter
}

// Result is the outcome of a pack run.
type Result struct {
	Manifest *manifest.Manifest
	// Deleted lists prior-manifest paths absent from the current walk
	// (spec §4.5.3), meaningful only in incremental mode.
	Deleted []string
	Entries int
	Bytes   int64
}

type candidate struct {
	walkedFile
	spec archivekit.CompressionSpec
}

// Run executes the pipeline described by opts.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if !opts.Container.SupportsWrite() {
		return nil, fmt.Errorf("%w: %v archives cannot be packed", archivekit.ErrUnsupported, opts.Container)
	}
	if opts.Strategy == nil {
		opts.Strategy = strategy.New(strategy.Config{})
	}
	reporter := opts.Progress
	if reporter == nil {
		reporter = progress.Nop{}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	files, err := walk(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: walking %q: %w", archivekit.ErrIO, opts.Root, err)
	}

	filter, err := newExcludeFilter(opts.Exclude)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(files))
	present := make(map[string]bool, len(files))
	for _, f := range files {
		if filter.excludes(f.relPath) {
			continue
		}
		if _, ok := toEntryKind(f.info); !ok {
			continue // irregular file (socket, device, fifo): skip, as the teacher does
		}
		present[f.relPath] = true
		candidates = append(candidates, candidate{walkedFile: f})
	}

	var deleted []string
	if opts.PriorManifest != nil {
		for _, rec := range opts.PriorManifest.Files {
			if !present[rec.Path] {
				deleted = append(deleted, rec.Path)
			}
		}
	}

	// Strategy decisions are pure functions of path+size, so they can be
	// computed from stat info alone, ahead of the read+hash stage, and
	// reused both for TAR outer-codec selection and per-entry ZIP
	// method reconciliation.
	tally := make(map[archivekit.CompressionSpec]int)
	for i := range candidates {
		c := &candidates[i]
		if c.info.Mode().IsRegular() {
			spec, explicit := opts.Strategy.DecideExplicit(c.relPath, c.info.Size(), nil)
			if opts.Container == archivekit.ContainerZip && !opts.Container.SupportsAlgorithm(spec.Algorithm) {
				if explicit {
					return nil, fmt.Errorf("%w: rule for %q selects %v, which zip cannot carry natively", archivekit.ErrUnsupported, c.relPath, spec.Algorithm)
				}
				spec = reconcileForZip(spec)
			}
			c.spec = spec
			tally[c.spec]++
		}
	}

	outerSpec := archivekit.CompressionSpec{Algorithm: archivekit.Store}
	if opts.Container == archivekit.ContainerTar {
		if opts.OuterSpec != nil {
			outerSpec = *opts.OuterSpec
		} else {
			outerSpec = mostCommon(tally)
		}
	}

	sink := opts.Sink
	var outerCloser io.Closer
	var cw container.Writer
	switch opts.Container {
	case archivekit.ContainerTar:
		cwr, err := codec.NewWriter(sink, outerSpec)
		if err != nil {
			return nil, err
		}
		outerCloser = cwr
		cw = tarc.NewWriter(cwr)
	case archivekit.ContainerZip:
		cw = zipc.NewWriter(sink)
	default:
		return nil, fmt.Errorf("%w: %v", archivekit.ErrUnsupported, opts.Container)
	}

	pool, err := stage.New(opts.StageDir, concurrency, -1)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	var totalBytes int64
	for _, c := range candidates {
		totalBytes += c.info.Size()
	}
	reporter.Start(totalBytes, "pack")
	defer reporter.Finish()

	out := &manifest.Manifest{}
	result := &Result{Manifest: out, Deleted: deleted}

	err = runPipeline(ctx, candidates, opts.PriorManifest, pool, cw, concurrency, reporter, out, result)

	closeErr := cw.Close()
	if outerCloser != nil {
		if cerr := outerCloser.Close(); cerr != nil && closeErr == nil {
			closeErr = cerr
		}
	}
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("%w: closing sink: %w", archivekit.ErrIO, closeErr)
	}

	out.Sort()
	return result, nil
}

// reconcileForZip implements spec §4.5.4's "constrained to {Store,
// Deflate}" rule: anything the strategy engine picked that ZIP cannot
// carry natively is downgraded to Deflate (Gzip in our Algorithm
// vocabulary means raw-deflate when targeting a ZIP entry).
func reconcileForZip(spec archivekit.CompressionSpec) archivekit.CompressionSpec {
	if spec.Algorithm == archivekit.Store {
		return spec
	}
	return archivekit.CompressionSpec{Algorithm: archivekit.Gzip}
}

// mostCommon picks the highest-tallied spec, falling back to Store
// when there were no regular files to tally.
func mostCommon(tally map[archivekit.CompressionSpec]int) archivekit.CompressionSpec {
	best := archivekit.CompressionSpec{Algorithm: archivekit.Store}
	bestCount := 0
	for spec, count := range tally {
		if count > bestCount {
			best, bestCount = spec, count
		}
	}
	return best
}

type prepared struct {
	idx    int
	entry  *archivekit.Entry
	record manifest.FileRecord
	buf    *stage.Buffer
	skip   bool // incremental mode: unchanged, recorded but not archived
}

func runPipeline(ctx context.Context, candidates []candidate, prior *manifest.Manifest, pool *stage.Pool, cw container.Writer, concurrency int, reporter progress.Reporter, out *manifest.Manifest, result *Result) error {
	resultsCh := make(chan prepared, resultChannelCapacity)
	sem := make(chan struct{}, concurrency)
	g, gctx := errgroup.WithContext(ctx)

	// The producer must run on its own goroutine, not inline here: workers
	// hold their sem slot until prepare returns, and prepare blocks in
	// pool.Get until the consumer loop below frees a buffer via pool.Put.
	// With the producer and consumer sharing one goroutine, once
	// concurrency workers are all blocked in pool.Get the producer would
	// never reach the sem-releasing consumer loop, and the whole pipeline
	// deadlocks on any candidate list bigger than the buffer pool.
	go func() {
		for i := range candidates {
			if gctx.Err() != nil {
				break
			}
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
			}
			if gctx.Err() != nil {
				break
			}

			i := i
			c := candidates[i]
			g.Go(func() error {
				defer func() { <-sem }()
				p, err := prepare(gctx, i, c, prior, pool)
				if err != nil {
					return fmt.Errorf("%w: %q: %w", archivekit.ErrIO, c.relPath, err)
				}
				select {
				case resultsCh <- p:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		g.Wait()
		close(resultsCh)
	}()

	pending := make(map[int]prepared)
	next := 0
	for next < len(candidates) {
		p, ok := pending[next]
		if !ok {
			var chOk bool
			p, chOk = <-resultsCh
			if !chOk {
				break
			}
			if p.idx != next {
				pending[p.idx] = p
				continue
			}
		} else {
			delete(pending, next)
		}

		out.Files = append(out.Files, p.record)
		if !p.skip {
			if err := cw.WriteEntry(p.entry); err != nil {
				if p.buf != nil {
					pool.Put(p.buf)
				}
				return fmt.Errorf("%w: writing %q: %w", archivekit.ErrIO, p.entry.Path, err)
			}
			result.Entries++
			result.Bytes += p.entry.Size
			reporter.Update(p.entry.Size)
			reporter.SetMessage(p.entry.Path)
		}
		if p.buf != nil {
			pool.Put(p.buf)
		}
		next++
	}

	return g.Wait()
}

// prepare builds the Entry, manifest record, and (for regular files)
// the staged, already-hashed body for one candidate. It runs
// concurrently across the worker pool; any filesystem state it reads
// is local to this one candidate.
func prepare(ctx context.Context, idx int, c candidate, prior *manifest.Manifest, pool *stage.Pool) (prepared, error) {
	kind, _ := toEntryKind(c.info)

	entry := &archivekit.Entry{
		Path:    c.relPath,
		Kind:    kind,
		Size:    c.info.Size(),
		Mode:    uint32(c.info.Mode().Perm()),
		ModTime: c.info.ModTime(),
		HasTime: true,
		Spec:    c.spec,
	}
	if uid, gid, ok := statOwnership(c.info); ok {
		entry.UID, entry.GID, entry.HasOwnership = uid, gid, true
	}

	record := manifest.FileRecord{
		Path:    c.relPath,
		Size:    c.info.Size(),
		ModSec:  c.info.ModTime().Unix(),
		ModNsec: int64(c.info.ModTime().Nanosecond()),
		Kind:    kind.String(),
	}

	switch kind {
	case archivekit.KindDirectory:
		return prepared{idx: idx, entry: entry, record: record}, nil

	case archivekit.KindSymlink:
		target, err := os.Readlink(c.absPath)
		if err != nil {
			return prepared{}, err
		}
		entry.LinkTarget = target
		record.LinkTarget = target
		return prepared{idx: idx, entry: entry, record: record}, nil

	default:
		f, err := os.Open(c.absPath)
		if err != nil {
			return prepared{}, err
		}
		defer f.Close()

		buf := pool.Get()
		hash, err := manifest.HashFile(io.TeeReader(f, buf))
		if err != nil {
			pool.Put(buf)
			return prepared{}, err
		}
		record.Hash = hash

		if unchanged(prior, record) {
			pool.Put(buf)
			return prepared{idx: idx, entry: entry, record: record, skip: true}, nil
		}

		entry.Reader = buf
		return prepared{idx: idx, entry: entry, record: record, buf: buf}, nil
	}
}

func unchanged(prior *manifest.Manifest, rec manifest.FileRecord) bool {
	if prior == nil {
		return false
	}
	prev, ok := prior.Lookup(rec.Path)
	return ok && prev.Hash == rec.Hash && prev.Size == rec.Size
}
