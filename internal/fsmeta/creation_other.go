//go:build !linux

package fsmeta

import (
	"io/fs"
	"time"
)

// creationTime has no portable fallback on this platform; callers treat a
// zero value as "unavailable" and substitute time.Now().
func creationTime(info fs.FileInfo) time.Time {
	return time.Time{}
}
