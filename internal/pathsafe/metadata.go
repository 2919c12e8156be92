package pathsafe

import (
	"io/fs"
	"time"
)

// Metadata is the subset of an Entry needed to restore filesystem
// attributes after a body has been written, in the strict order spec
// §4.3 mandates: create -> write contents -> set mode -> set mtime.
type Metadata struct {
	Mode         fs.FileMode
	ModTime      time.Time
	HasTime      bool
	UID, GID     int
	HasOwnership bool
}

// Restore sets permissions, modification time and, if requested and
// privileged, ownership on path. Ownership failures are demoted to a
// call to warn rather than returned, matching spec §4.3's "failures
// are demoted to warnings" and the teacher's chownErrorHandler option.
func Restore(path string, m Metadata, warn func(error)) error {
	if err := lchmod(path, m.Mode); err != nil {
		return err
	}

	if m.HasTime {
		if err := lchtimes(path, m.Mode, time.Now(), m.ModTime); err != nil {
			return err
		}
	}

	if m.HasOwnership {
		if err := lchown(path, m.UID, m.GID); err != nil && warn != nil {
			warn(err)
		}
	}

	return nil
}
