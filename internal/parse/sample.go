package parse

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/fauli/dawidx/internal/util"
)

// decodeHexUTF16Path decodes a v9/v10 <Data> hex blob: the hex-decoded
// bytes are interpreted as little-endian UTF-16 code units, and any null
// code units are stripped before re-assembling the path string. Decode
// failures are reported as InvalidProject rather than silently dropping
// the sample.
func decodeHexUTF16Path(hexData string) (string, error) {
	hexData = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			return -1
		}
		return r
	}, hexData)

	raw, err := hex.DecodeString(hexData)
	if err != nil {
		return "", fmt.Errorf("sample decode failed: %w: %v", util.ErrInvalidProject, err)
	}
	if len(raw)%2 != 0 {
		return "", fmt.Errorf("sample decode failed: %w: odd byte length", util.ErrInvalidProject)
	}

	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u := uint16(raw[i]) | uint16(raw[i+1])<<8
		if u == 0 {
			continue // nulls stripped
		}
		units = append(units, u)
	}

	return string(utf16.Decode(units)), nil
}

// samplePathName returns the basename of a sample path for display.
func samplePathName(path string) string {
	return filepath.Base(filepath.FromSlash(path))
}
