// Package pathsafe implements entry path sanitisation and metadata
// restoration for the extract pipeline (spec §4.3), generalizing the
// teacher extractor's inline chroot-prefix check
// (saracen/fastzip's extractor.go: "cannot be extracted outside of
// chroot") into the fuller rule set the spec demands: strip-components,
// hoist, symlink-target sanitisation and the compression-bomb guard.
package pathsafe

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/arclane/archivekit"
)

// Options mirrors the path-affecting fields of archivekit.ExtractionPolicy.
type Options struct {
	StripComponents int
	Hoist           bool
	HoistPrefix     string // computed once per archive via DetectHoistPrefix
}

// Sanitize validates and rewrites a logical archive path into a
// relative, slash-separated path safe to join under an extraction
// root. It returns ok=false (not an error) when StripComponents or
// Hoist causes the entry to be dropped entirely, per spec §4.3.2.
func Sanitize(rawPath string, opts Options) (cleaned string, ok bool, err error) {
	if err := checkSyntax(rawPath); err != nil {
		return "", false, err
	}

	p := path.Clean(strings.TrimPrefix(rawPath, "/"))
	if p == "." {
		return "", false, nil
	}

	segments := strings.Split(p, "/")

	if opts.Hoist && opts.HoistPrefix != "" {
		if segments[0] != opts.HoistPrefix {
			return "", false, fmt.Errorf("%w: %q does not share hoisted prefix %q", archivekit.ErrInvalidPath, rawPath, opts.HoistPrefix)
		}
		segments = segments[1:]
	}

	if opts.StripComponents > 0 {
		if len(segments) <= opts.StripComponents {
			return "", false, nil
		}
		segments = segments[opts.StripComponents:]
	}

	if len(segments) == 0 {
		return "", false, nil
	}

	cleaned = strings.Join(segments, "/")
	if err := checkSyntax(cleaned); err != nil {
		return "", false, err
	}
	return cleaned, true, nil
}

// checkSyntax enforces spec §3 invariant 1: no absolute prefix, no ..
// component, no drive letter, no NUL byte.
func checkSyntax(p string) error {
	if strings.IndexByte(p, 0) >= 0 {
		return fmt.Errorf("%w: %q contains a NUL byte", archivekit.ErrInvalidPath, p)
	}
	if len(p) >= 2 && p[1] == ':' {
		return fmt.Errorf("%w: %q contains a drive letter", archivekit.ErrInvalidPath, p)
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return fmt.Errorf("%w: %q is absolute", archivekit.ErrInvalidPath, p)
	}
	cleaned := path.Clean(strings.TrimPrefix(p, "/"))
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q escapes its root", archivekit.ErrInvalidPath, p)
		}
	}
	return nil
}

// DetectHoistPrefix implements spec §4.3.3: if all entries share a
// single common top-level directory, that segment is the hoist prefix.
// Per DESIGN.md's resolution of Open Question 1, this requires every
// entry (not just most) to share the segment.
func DetectHoistPrefix(names []string) (string, bool) {
	var prefix string
	for i, name := range names {
		name = strings.TrimPrefix(path.Clean(name), "/")
		if name == "." || name == "" {
			continue
		}
		seg := strings.SplitN(name, "/", 2)[0]
		if i == 0 || prefix == "" {
			prefix = seg
			continue
		}
		if seg != prefix {
			return "", false
		}
	}
	if prefix == "" {
		return "", false
	}
	return prefix, true
}

// ResolveTarget joins cleaned (already sanitised by Sanitize) onto
// root and re-verifies the result remains lexically under root (spec
// §4.3.4). The check is purely lexical: symlinks that already exist
// under root are not resolved.
func ResolveTarget(root, cleaned string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(cleaned))
	rootClean := filepath.Clean(root)
	rootWithSep := rootClean + string(filepath.Separator)
	if target != rootClean && !strings.HasPrefix(target, rootWithSep) {
		return "", fmt.Errorf("%w: %q escapes extraction root", archivekit.ErrInvalidPath, cleaned)
	}
	return target, nil
}

// SanitizeSymlinkTarget validates a symlink's target per spec §4.3.6:
// an absolute or ..-escaping target is rejected unless followSymlinks
// is set, in which case the caller should copy the referenced file's
// contents instead of creating a link (copyInstead=true).
func SanitizeSymlinkTarget(target string, followSymlinks bool) (copyInstead bool, err error) {
	if target == "" {
		return false, fmt.Errorf("%w: empty symlink target", archivekit.ErrInvalidPath)
	}

	escapes := strings.HasPrefix(target, "/") || strings.HasPrefix(target, "\\") ||
		(len(target) >= 2 && target[1] == ':')

	if !escapes {
		cleaned := path.Clean(target)
		for _, seg := range strings.Split(cleaned, "/") {
			if seg == ".." {
				escapes = true
				break
			}
		}
	}

	if !escapes {
		return false, nil
	}
	if followSymlinks {
		return true, nil
	}
	return false, fmt.Errorf("%w: symlink target %q escapes extraction root", archivekit.ErrInvalidPath, target)
}
