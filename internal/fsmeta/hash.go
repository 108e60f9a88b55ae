// Package fsmeta implements the file hasher and metadata reader: given
// an absolute path it returns the file's creation/modification timestamps
// and a content hash suitable for detecting unchanged or reactivated
// projects.
package fsmeta

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/fauli/dawidx/internal/util"
)

// readChunkSize matches the 1 KiB read granularity used for streaming hashes;
// it keeps memory flat for large project files without materializing the
// whole file in memory just to hash it.
const readChunkSize = 1024

// Info is the (created_at, modified_at, hash) triple produced for a path.
type Info struct {
	Path       string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Hash       string // 8 lowercase hex digits, CRC32
}

// Read computes Info for path. CRC32 is computed over the full byte stream
// in 1 KiB reads. If the creation time is unavailable on this platform, it
// falls back to time.Now() at call time (best-effort only).
func Read(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, util.NewIOError(path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Info{}, util.NewIOError(path, err)
	}

	hash, err := HashFile(f)
	if err != nil {
		return Info{}, util.NewIOError(path, err)
	}

	created := creationTime(stat)
	if created.IsZero() {
		created = time.Now()
	}

	return Info{
		Path:       path,
		CreatedAt:  created,
		ModifiedAt: stat.ModTime(),
		Hash:       hash,
	}, nil
}

// HashFile computes the CRC32 hex digest of r, reading in readChunkSize
// chunks so the hasher never needs the full content resident at once.
func HashFile(r io.Reader) (string, error) {
	h := crc32.NewIEEE()
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%08x", h.Sum32()), nil
}

// HashPath opens path and returns its CRC32 hex digest, for callers that
// need only the hash without the timestamps of a full Read.
func HashPath(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", util.NewIOError(path, err)
	}
	defer f.Close()
	return HashFile(f)
}
