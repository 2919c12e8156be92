// Package zipc implements the ZIP container on top of
// github.com/klauspost/compress/zip, generalizing
// saracen/fastzip's Archiver/Extractor (which hardcoded Zip +
// Deflate/Zstd) into the container.Writer/container.Reader seam so
// the pack/extract pipelines can treat it the same as TAR and 7z.
package zipc

import (
	"fmt"
	"io"
	"io/fs"
	"math/big"

	"github.com/klauspost/compress/zip"
	"github.com/saracen/zipextra"

	"github.com/arclane/archivekit"
)

// zipSymlinkMode is the external-attribute mode bit ZIP uses to mark
// symlink entries (spec §4.2: "entry mode bit 0xA000").
const zipSymlinkMode = fs.ModeSymlink

type writer struct {
	zw *zip.Writer
}

// NewWriter returns a container.Writer producing a ZIP archive on w.
// Per-entry compression method is supplied on each Entry via
// MethodFor; the pack pipeline is responsible for constraining it to
// {Store, Deflate} (spec §4.2: container/codec coupling).
func NewWriter(w io.Writer) *writer {
	return &writer{zw: zip.NewWriter(w)}
}

// RegisterCompressor exposes the underlying zip.Writer's custom
// compressor registration, mirroring fastzip.Archiver.RegisterCompressor.
func (wr *writer) RegisterCompressor(method uint16, comp zip.Compressor) {
	wr.zw.RegisterCompressor(method, comp)
}

// MethodFor maps an archivekit.CompressionSpec chosen by the strategy
// engine onto a ZIP method ID. Only Store and Deflate are accepted;
// anything else is a caller bug since the strategy/container
// reconciliation step (spec §4.5.4) must have already rejected it.
func MethodFor(spec archivekit.CompressionSpec) (uint16, error) {
	switch spec.Algorithm {
	case archivekit.Store:
		return zip.Store, nil
	case archivekit.Gzip:
		return zip.Deflate, nil
	default:
		return 0, fmt.Errorf("%w: zip entries cannot use %v", archivekit.ErrUnsupported, spec.Algorithm)
	}
}

// WriteEntry writes e, using e.Spec (converted via MethodFor) for file
// bodies. Directories and symlinks carry no compression method.
func (wr *writer) WriteEntry(e *archivekit.Entry) error {
	hdr := &zip.FileHeader{
		Name:     e.Path,
		Modified: e.ModTime,
	}

	mode := fs.FileMode(e.Mode) & fs.ModePerm
	switch e.Kind {
	case archivekit.KindDirectory:
		hdr.Name = ensureTrailingSlash(e.Path)
		hdr.SetMode(mode | fs.ModeDir)
	case archivekit.KindSymlink, archivekit.KindHardlink:
		// ZIP has no hardlink type; spec §3 collapses it to a regular
		// file, but we only reach this branch for real symlinks since
		// the pack pipeline already resolved hardlinks to file bodies.
		hdr.SetMode(mode | zipSymlinkMode)
	default:
		method, err := MethodFor(e.Spec)
		if err != nil {
			return err
		}
		hdr.SetMode(mode)
		hdr.Method = method
	}

	if e.HasOwnership {
		hdr.Extra = append(hdr.Extra, zipextra.NewInfoZIPNewUnix(
			big.NewInt(int64(e.UID)), big.NewInt(int64(e.GID))).Encode()...)
	}

	w, err := wr.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("%w: zip header for %q: %w", archivekit.ErrIO, e.Path, err)
	}

	switch e.Kind {
	case archivekit.KindDirectory:
		return nil
	case archivekit.KindSymlink:
		_, err = io.WriteString(w, e.LinkTarget)
		return err
	default:
		if e.Reader == nil {
			return nil
		}
		n, err := io.Copy(w, e.Reader)
		if err != nil {
			return fmt.Errorf("%w: zip body for %q: %w", archivekit.ErrIO, e.Path, err)
		}
		if n != e.Size {
			return fmt.Errorf("%w: %q declared size %d but wrote %d bytes", archivekit.ErrFormat, e.Path, e.Size, n)
		}
		return nil
	}
}

func (wr *writer) Close() error {
	return wr.zw.Close()
}

func ensureTrailingSlash(p string) string {
	if len(p) > 0 && p[len(p)-1] != '/' {
		return p + "/"
	}
	return p
}
