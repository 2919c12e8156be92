//go:build windows

package packpipe

import "io/fs"

// statOwnership reports no ownership on Windows, mirroring the
// teacher's archiver_windows.go, which never populates zipextra unix
// fields on that platform.
func statOwnership(info fs.FileInfo) (uid, gid int, ok bool) {
	return 0, 0, false
}
