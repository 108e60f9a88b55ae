package fsmeta

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fauli/dawidx/internal/util"
)

// gzipMagic is the two-byte magic header every gzip member begins with.
var gzipMagic = []byte{0x1f, 0x8b}

// Decompress reads path, validates its gzip magic, and returns the fully
// decompressed XML buffer. A file is only accepted if its gzip magic is
// present; extension matching is the caller's responsibility (discovery already
// filtered by project_extension).
func Decompress(path string) ([]byte, error) {
	raw, err := os.Open(path)
	if err != nil {
		return nil, util.NewIOError(path, err)
	}
	defer raw.Close()

	header := make([]byte, 2)
	n, err := io.ReadFull(raw, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, util.NewIOError(path, err)
	}
	if n < 2 || !bytes.Equal(header, gzipMagic) {
		return nil, fmt.Errorf("%s: %w", path, util.ErrNotGzip)
	}

	if _, err := raw.Seek(0, io.SeekStart); err != nil {
		return nil, util.NewIOError(path, err)
	}

	gz, err := gzip.NewReader(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, util.ErrNotGzip)
	}
	defer gz.Close()

	buf, err := io.ReadAll(gz)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, gzip.ErrChecksum) {
			return nil, fmt.Errorf("%s: %w", path, util.ErrTruncated)
		}
		return nil, util.NewIOError(path, err)
	}

	return buf, nil
}
