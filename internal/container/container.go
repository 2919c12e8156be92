// Package container defines the narrow producer/consumer seam that
// tarc, zipc and sevenzipc implement (spec §4.2), letting pack,
// extract and modify pipelines stay container-agnostic. This
// generalizes the teacher's hardcoded *zip.Writer/*zip.Reader fields
// (fastzip.Archiver/fastzip.Extractor) into an interface, per Design
// Note §9's "tagged union of concrete types behind a narrow trait
// surface".
package container

import (
	"github.com/arclane/archivekit"
)

// Writer streams archivekit.Entry values into a container format.
// WriteEntry consumes Entry.Reader exactly once for KindFile entries.
// Close finalizes the container (central directory, end-of-archive
// markers) but does not close the underlying sink.
type Writer interface {
	WriteEntry(e *archivekit.Entry) error
	Close() error
}

// Reader iterates the entries of an already-open container in
// declaration order. Next returns io.EOF once exhausted. The Entry's
// Reader, if non-nil, must be read before calling Next again.
type Reader interface {
	Next() (*archivekit.Entry, error)
	Close() error
}

// Note: there is no single ReaderFactory/WriterFactory function type
// shared across formats. TAR streams from a plain io.Reader/io.Writer
// (any outer codec wraps it upstream); ZIP and 7z need random access
// (io.ReaderAt + size) to read their trailing central directory. The
// façade in the root package type-switches on archivekit.Container and
// calls each package's own constructor directly rather than going
// through a uniform factory signature that would have to be lossy in
// one direction or the other.
