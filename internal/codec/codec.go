// Package codec implements streaming compress/decompress for Store,
// Gzip, Zstd, Xz and Brotli, extending the pooled-writer pattern the
// teacher archiver used only for ZIP's Flate and Zstd methods
// (fastzip's register.go) to the Gzip, Zstd and Brotli writers and the
// Gzip and Zstd readers; Store, Xz and the Brotli reader are not pooled.
package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/arclane/archivekit"
)

// Writer wraps an io.Writer into a compressing sink. Callers must call
// Close to flush trailers; closing does not close the underlying
// writer.
type Writer interface {
	io.WriteCloser
}

// Reader wraps an io.Reader into a decompressing source.
type Reader interface {
	io.ReadCloser
}

// NewWriter returns a streaming compressor for spec, writing to w.
// spec is normalized (Xz forced to one thread) before use.
func NewWriter(w io.Writer, spec archivekit.CompressionSpec) (Writer, error) {
	spec = spec.Normalize()

	switch spec.Algorithm {
	case archivekit.Store:
		return newStoreWriter(w), nil
	case archivekit.Gzip:
		return newGzipWriter(w, spec.Level)
	case archivekit.Zstd:
		return newZstdWriter(w, spec.Level, spec.LongWindow)
	case archivekit.Xz:
		return newXzWriter(w, spec.Level)
	case archivekit.Brotli:
		return newBrotliWriter(w, spec.Level)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %v", archivekit.ErrUnsupported, spec.Algorithm)
	}
}

// NewReader returns a streaming decompressor reading from r, for the
// named algorithm.
func NewReader(r io.Reader, algo archivekit.Algorithm) (Reader, error) {
	switch algo {
	case archivekit.Store:
		return newStoreReader(r), nil
	case archivekit.Gzip:
		return newGzipReader(r)
	case archivekit.Zstd:
		return newZstdReader(r)
	case archivekit.Xz:
		return newXzReader(r)
	case archivekit.Brotli:
		return newBrotliReader(r), nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %v", archivekit.ErrUnsupported, algo)
	}
}

// bufferedReadCloser pairs a *bufio.Reader front-end (matching the
// teacher's 32KiB bufio.Reader convention) with the underlying closer.
type bufferedReadCloser struct {
	*bufio.Reader
	closer io.Closer
}

func (b *bufferedReadCloser) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
