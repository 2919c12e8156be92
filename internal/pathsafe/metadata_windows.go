//go:build windows

package pathsafe

import (
	"io/fs"
	"os"
	"time"
)

func lchmod(name string, mode fs.FileMode) error {
	if mode&fs.ModeSymlink != 0 {
		return nil
	}
	return os.Chmod(name, mode.Perm())
}

func lchtimes(name string, mode fs.FileMode, atime, mtime time.Time) error {
	if mode&fs.ModeSymlink != 0 {
		return nil
	}
	return os.Chtimes(name, atime, mtime)
}

func lchown(name string, uid, gid int) error {
	return nil
}
