// Package inspectpipe implements archive inspection (spec §4.10):
// enumerate entries without extracting their bodies. It reuses the
// same container.Reader seam as extractpipe and modify, but never
// writes to disk and never consumes an entry's body bytes, matching
// the teacher's read-only central-directory walk.
package inspectpipe

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arclane/archivekit"
	"github.com/arclane/archivekit/internal/container"
)

// Options configures one Inspect run.
type Options struct {
	// NewReader opens a fresh container.Reader over the archive.
	NewReader func() (container.Reader, error)
	Container archivekit.Container

	// OuterAlgorithm is the single outer codec wrapping a TAR stream.
	// TAR has no per-entry compression concept (spec §4.2), so every
	// entry's reported compression-kind is this value; ignored for ZIP,
	// whose entries carry their own method (internal/container/zipc
	// populates Entry.Spec per entry on read).
	OuterAlgorithm archivekit.Algorithm
}

// EntryInfo is one archive entry's metadata, shaped for stable JSON
// serialisation (spec §3, "idempotent: inspect(A) == inspect(A)
// byte-for-byte").
type EntryInfo struct {
	Path        string    `json:"path"`
	Kind        string    `json:"kind"`
	Size        int64     `json:"size"`
	Mode        uint32    `json:"mode"`
	ModTime     time.Time `json:"mod_time"`
	Compression string    `json:"compression"`
	LinkTarget  string    `json:"link_target,omitempty"`
}

// Run enumerates every entry in the archive opts.NewReader opens, in
// declaration order, without reading any entry's body.
func Run(opts Options) ([]EntryInfo, error) {
	rd, err := opts.NewReader()
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive: %w", archivekit.ErrIO, err)
	}
	defer rd.Close()

	var entries []EntryInfo
	for {
		e, nerr := rd.Next()
		if nerr != nil {
			if errors.Is(nerr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: reading next entry: %w", archivekit.ErrIO, nerr)
		}

		algo := e.Spec.Algorithm
		if opts.Container == archivekit.ContainerTar {
			algo = opts.OuterAlgorithm
		}

		entries = append(entries, EntryInfo{
			Path:        e.Path,
			Kind:        e.Kind.String(),
			Size:        e.Size,
			Mode:        e.Mode,
			ModTime:     e.ModTime,
			Compression: algo.String(),
			LinkTarget:  e.LinkTarget,
		})
	}

	return entries, nil
}
