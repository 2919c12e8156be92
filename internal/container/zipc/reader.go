package zipc

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/saracen/zipextra"

	"github.com/arclane/archivekit"
)

type reader struct {
	zr   *zip.Reader
	idx  int
	rc   io.ReadCloser // open reader for the entry currently being consumed
}

// NewReader returns a container.Reader over an already-opened ZIP
// central directory. r must support random access since the central
// directory lives at the end of the file (spec §4.2).
func NewReader(r io.ReaderAt, size int64) (*reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", archivekit.ErrFormat, err)
	}

	// Registering a WinZip zstd decompressor lets this reader open
	// archives produced by tools that tag zstd-compressed entries with
	// the WinZip method extension, even though this module's own pack
	// pipeline never writes that combination (spec: ZIP only writes
	// Store/Deflate). Read liberally, write conservatively.
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, func(r io.Reader) io.ReadCloser {
		zr, _ := zstd.NewReader(r)
		return zr.IOReadCloser()
	})

	return &reader{zr: zr}, nil
}

func (rd *reader) Next() (*archivekit.Entry, error) {
	if rd.rc != nil {
		rd.rc.Close()
		rd.rc = nil
	}

	if rd.idx >= len(rd.zr.File) {
		return nil, io.EOF
	}
	f := rd.zr.File[rd.idx]
	rd.idx++

	mode := f.Mode()
	e := &archivekit.Entry{
		Path:    f.Name,
		Size:    int64(f.UncompressedSize64),
		Mode:    uint32(mode.Perm()),
		ModTime: f.Modified,
		HasTime: true,
		Spec:    specForMethod(f.Method),
	}

	switch {
	case mode.IsDir() || (len(f.Name) > 0 && f.Name[len(f.Name)-1] == '/'):
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
		e.Kind = archivekit.KindFile
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %q: %w", archivekit.ErrIO, f.Name, err)
		}
		rd.rc = rc
		e.Reader = rc
	}

	if fields, err := zipextra.Parse(f.Extra); err == nil {
		if unixField, ok := fields[zipextra.ExtraFieldUnixN]; ok {
			if unix, err := unixField.InfoZIPNewUnix(); err == nil {
				e.UID = int(unix.Uid.Int64())
				e.GID = int(unix.Gid.Int64())
				e.HasOwnership = true
			}
		}
	}

	return e, nil
}

func (rd *reader) Close() error {
	if rd.rc != nil {
		err := rd.rc.Close()
		rd.rc = nil
		return err
	}
	return nil
}

// specForMethod reports the compression algorithm an on-disk ZIP
// entry actually used, for inspect (spec §4.10, "compression-kind")
// and for anything re-emitting the entry unchanged (the modifier).
// The WinZip zstd extension this reader also registers a decompressor
// for reports Zstd; any other unrecognised method reports Gzip.
func specForMethod(method uint16) archivekit.CompressionSpec {
	switch method {
	case zip.Store:
		return archivekit.CompressionSpec{Algorithm: archivekit.Store}
	case zip.Deflate:
		return archivekit.CompressionSpec{Algorithm: archivekit.Gzip}
	case zstd.ZipMethodWinZip:
		return archivekit.CompressionSpec{Algorithm: archivekit.Zstd}
	default:
		return archivekit.CompressionSpec{Algorithm: archivekit.Gzip}
	}
}
