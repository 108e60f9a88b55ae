//go:build linux

package fsmeta

import (
	"io/fs"
	"syscall"
	"time"
)

// creationTime approximates filesystem creation time using the inode
// change time (ctime), since most Linux filesystems do not expose a true
// birth time through stat(2). Callers fall back to time.Now() if this
// returns the zero value.
func creationTime(info fs.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}
	}
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
}
