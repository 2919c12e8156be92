// Package tarc implements the TAR container (POSIX ustar with PAX
// extensions) on top of the standard library's archive/tar, per spec
// §4.2: "PAX headers carry paths > 100 bytes, sizes > 8 GiB, sub-second
// mtimes." archive/tar automatically promotes a header to PAX when a
// field overflows ustar's limits, so no explicit format selection is
// needed here.
package tarc

import (
	"archive/tar"
	"fmt"
	"io"

	"github.com/arclane/archivekit"
)

type writer struct {
	tw *tar.Writer
}

// NewWriter returns a container.Writer that writes entries as POSIX
// ustar/PAX records to w. Unlike ZIP, TAR has no per-entry compression
// concept; any codec wraps the whole stream upstream of w.
func NewWriter(w io.Writer) *writer {
	return &writer{tw: tar.NewWriter(w)}
}

func (wr *writer) WriteEntry(e *archivekit.Entry) error {
	hdr := &tar.Header{
		Name:    e.Path,
		Mode:    int64(e.Mode & 0o7777),
		ModTime: e.ModTime,
		Uid:     e.UID,
		Gid:     e.GID,
	}

	switch e.Kind {
	case archivekit.KindDirectory:
		hdr.Typeflag = tar.TypeDir
		hdr.Name = ensureTrailingSlash(e.Path)
	case archivekit.KindSymlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = e.LinkTarget
	case archivekit.KindHardlink:
		hdr.Typeflag = tar.TypeLink
		hdr.Linkname = e.LinkTarget
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.Size
	}

	if err := wr.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%w: tar header for %q: %w", archivekit.ErrIO, e.Path, err)
	}

	if hdr.Typeflag != tar.TypeReg || e.Reader == nil {
		return nil
	}

	n, err := io.Copy(wr.tw, e.Reader)
	if err != nil {
		return fmt.Errorf("%w: tar body for %q: %w", archivekit.ErrIO, e.Path, err)
	}
	if n != e.Size {
		return fmt.Errorf("%w: %q declared size %d but wrote %d bytes", archivekit.ErrFormat, e.Path, e.Size, n)
	}
	return nil
}

func (wr *writer) Close() error {
	return wr.tw.Close()
}

func ensureTrailingSlash(p string) string {
	if len(p) > 0 && p[len(p)-1] != '/' {
		return p + "/"
	}
	return p
}
