package archivekit

import (
	"errors"
	"fmt"
)

// Sentinel error kinds from the archive engine's error taxonomy. Use
// errors.Is to test for a kind; per-entry failures wrap one of these.
var (
	ErrIO              = errors.New("archivekit: io error")
	ErrFormat          = errors.New("archivekit: malformed archive format")
	ErrUnsupported     = errors.New("archivekit: unsupported format combination")
	ErrInvalidPath     = errors.New("archivekit: invalid entry path")
	ErrSymlinkLoop     = errors.New("archivekit: symlink loop detected")
	ErrCompressionBomb = errors.New("archivekit: compression bomb guard tripped")
	ErrCancelled       = errors.New("archivekit: operation cancelled")
	ErrPartialFailure  = errors.New("archivekit: one or more entries failed")
)

// FailedEntry records a single entry that could not be packed, extracted
// or modified, without aborting the surrounding operation.
type FailedEntry struct {
	Path string
	Err  error
}

func (f FailedEntry) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f FailedEntry) Unwrap() error {
	return f.Err
}

// wrapErr annotates err with a taxonomy sentinel so callers can use
// errors.Is(err, archivekit.ErrIO) and similar checks.
func wrapErr(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
