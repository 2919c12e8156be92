package extractpipe

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/arclane/archivekit"
	"github.com/arclane/archivekit/internal/pathsafe"
	"github.com/arclane/archivekit/progress"
)

func fileModeOf(mode uint32) fs.FileMode {
	return fs.FileMode(mode).Perm()
}

// writeFile streams body into path, polling ctx for cancellation every
// 1 MiB via progress.CancelReader (spec §4.9).
func writeFile(ctx context.Context, path string, body io.Reader) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", archivekit.ErrIO, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return fmt.Errorf("%w: %w", archivekit.ErrIO, err)
	}
	defer f.Close()

	if body == nil {
		return nil
	}

	if _, err := io.Copy(f, progress.NewCancelReader(ctx, body)); err != nil {
		return fmt.Errorf("%w: %w", archivekit.ErrIO, err)
	}
	return nil
}

// createSymlink implements the deferred symlink phase (spec §4.6,
// grounded on fastzip's "defer symlinks to avoid traversal-via-
// newly-created-link" comment): resolve any conflict at the target
// path exactly as a regular file would, sanitise the link target, and
// either create the symlink or, when the target escapes and
// FollowSymlinks is set, copy the referenced file's bytes instead.
func createSymlink(root string, s deferredSymlink, policy archivekit.ExtractionPolicy, latch *conflictLatch, warn func(error)) error {
	action, target, err := resolveConflict(s.target, policy, latch)
	if err != nil {
		return err
	}
	if action == actionSkip {
		return nil
	}

	if s.entry.Kind == archivekit.KindHardlink {
		return createHardlink(root, s, target)
	}

	copyInstead, err := pathsafe.SanitizeSymlinkTarget(s.entry.LinkTarget, policy.FollowSymlinks)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", archivekit.ErrIO, err)
	}

	if copyInstead {
		// The link target escapes the extraction root but the caller
		// asked to follow symlinks anyway; the safe rendering is a
		// regular-file copy of whatever the link pointed to, not a
		// dangling or escaping symlink.
		src, err := os.Open(s.entry.LinkTarget)
		if err != nil {
			return fmt.Errorf("%w: following symlink target outside root: %w", archivekit.ErrIO, err)
		}
		defer src.Close()
		return writeFile(context.Background(), target, src)
	}

	if err := os.Symlink(s.entry.LinkTarget, target); err != nil {
		return fmt.Errorf("%w: %w", archivekit.ErrIO, err)
	}
	return pathsafe.Restore(target, metadataOf(s.entry), warn)
}

func createHardlink(root string, s deferredSymlink, target string) error {
	cleaned, ok, err := pathsafe.Sanitize(s.entry.LinkTarget, pathsafe.Options{})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: hardlink target %q is empty after sanitisation", archivekit.ErrInvalidPath, s.entry.LinkTarget)
	}
	source, err := pathsafe.ResolveTarget(root, cleaned)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", archivekit.ErrIO, err)
	}
	if err := os.Link(source, target); err != nil {
		return fmt.Errorf("%w: %w", archivekit.ErrIO, err)
	}
	return nil
}
