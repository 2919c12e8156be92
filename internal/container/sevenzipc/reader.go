// Package sevenzipc implements read-only 7z container support on top
// of github.com/bodgit/sevenzip (spec §1 non-goal: 7z creation; §4.2:
// "7z read-only: enumerate entries, expose a streaming reader per
// entry"). There is no writer: 7z is never a pack/modify target.
package sevenzipc

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/bodgit/sevenzip"

	"github.com/arclane/archivekit"
)

type reader struct {
	files  []*sevenzip.File
	closer io.Closer // non-nil only when opened via Open(filename)
	idx    int
	rc     io.ReadCloser
}

// Open opens the 7z archive at filename for streaming enumeration.
// Close must be called when done to release the underlying file.
func Open(filename string) (*reader, error) {
	zr, err := sevenzip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: opening 7z archive: %w", archivekit.ErrFormat, err)
	}
	return &reader{files: zr.File, closer: zr}, nil
}

// NewReader opens a 7z archive from a seekable, sized source. Unlike
// Open, there is no file handle for Close to release.
func NewReader(r io.ReaderAt, size int64) (*reader, error) {
	zr, err := sevenzip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: opening 7z archive: %w", archivekit.ErrFormat, err)
	}
	return &reader{files: zr.File}, nil
}

func (rd *reader) Next() (*archivekit.Entry, error) {
	if rd.rc != nil {
		rd.rc.Close()
		rd.rc = nil
	}

	if rd.idx >= len(rd.files) {
		return nil, io.EOF
	}
	f := rd.files[rd.idx]
	rd.idx++

	mode := f.Mode()
	e := &archivekit.Entry{
		Path:    f.Name,
		Size:    int64(f.UncompressedSize),
		Mode:    uint32(mode.Perm()),
		ModTime: f.Modified,
		HasTime: true,
	}

	switch {
	case f.FileInfo().IsDir():
		e.Kind = archivekit.KindDirectory
		e.Size = 0
	case mode&fs.ModeSymlink != 0:
		e.Kind = archivekit.KindSymlink
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening symlink %q: %w", archivekit.ErrIO, f.Name, err)
		}
		defer rc.Close()
		target, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: reading symlink target %q: %w", archivekit.ErrIO, f.Name, err)
		}
		e.LinkTarget = string(target)
	default:
		// 7z collapses hardlinks to regular files (spec §3), so every
		// remaining entry kind is a plain file body.
		e.Kind = archivekit.KindFile
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %q: %w", archivekit.ErrIO, f.Name, err)
		}
		rd.rc = rc
		e.Reader = rc
	}

	return e, nil
}

func (rd *reader) Close() error {
	if rd.rc != nil {
		rd.rc.Close()
		rd.rc = nil
	}
	if rd.closer != nil {
		return rd.closer.Close()
	}
	return nil
}
