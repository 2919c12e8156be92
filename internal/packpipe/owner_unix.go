//go:build !windows

package packpipe

import (
	"io/fs"
	"syscall"
)

// statOwnership extracts the unix uid/gid the teacher archiver reads
// off FileInfo.Sys() (saracen/fastzip's archiver_unix.go createHeader).
func statOwnership(info fs.FileInfo) (uid, gid int, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return int(stat.Uid), int(stat.Gid), true
}
