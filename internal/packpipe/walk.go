package packpipe

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/arclane/archivekit"
)

// walkedFile is one filesystem object discovered under a pack root,
// carrying both its logical (slash, relative) archive path and the
// information needed to stat/open it.
type walkedFile struct {
	relPath string // POSIX-style, relative to root
	absPath string
	info    fs.FileInfo
}

// walk produces entries in deterministic lexicographic order by
// logical path (spec §4.5.1). filepath.WalkDir visits a tree in
// lexical order depth-first, which is not the same as a full sort of
// relative paths (it visits "a/b" before "a-c"), so the collected list
// is sorted by relative path before it is returned.
func walk(root string) ([]walkedFile, error) {
	var files []walkedFile

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		files = append(files, walkedFile{
			relPath: filepath.ToSlash(rel),
			absPath: path,
			info:    info,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].relPath < files[j].relPath })
	return files, nil
}

// toEntryKind classifies a walked file for the Entry model, collapsing
// anything irregular (os.ModeSocket, os.ModeDevice, os.ModeNamedPipe,
// and similar) by reporting ok=false, as the teacher does.
func toEntryKind(info fs.FileInfo) (archivekit.EntryKind, bool) {
	mode := info.Mode()
	switch {
	case mode.IsDir():
		return archivekit.KindDirectory, true
	case mode&fs.ModeSymlink != 0:
		return archivekit.KindSymlink, true
	case mode.IsRegular():
		return archivekit.KindFile, true
	default:
		return 0, false
	}
}
