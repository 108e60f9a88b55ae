package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fauli/dawidx/internal/util"
)

// ParseVersion derives a Version from the root element's attributes.
// minorVersion is shaped "<major>.<minor>_<patch>" (e.g.
// "12.0_12049"); its integer prefix becomes the publicly reported Major,
// not the raw majorVersion attribute — this mapping is idiosyncratic to
// the source format and preserved exactly rather than "fixed".
// schemaChangeCount equal to the literal "beta" marks a pre-release.
func ParseVersion(majorVersion, minorVersion, schemaChangeCount string) (Version, error) {
	if minorVersion == "" {
		return Version{}, util.ErrMissingVersion
	}

	dot := strings.IndexByte(minorVersion, '.')
	underscore := strings.IndexByte(minorVersion, '_')
	if dot < 0 || underscore < 0 || underscore < dot {
		return Version{}, fmt.Errorf("%s: %w", minorVersion, util.ErrInvalidVersion)
	}

	majorPart := minorVersion[:dot]
	minorPart := minorVersion[dot+1 : underscore]
	patchPart := minorVersion[underscore+1:]

	major, err := strconv.Atoi(majorPart)
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", minorVersion, util.ErrInvalidVersion)
	}
	minor, err := strconv.Atoi(minorPart)
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", minorVersion, util.ErrInvalidVersion)
	}
	patch, err := strconv.Atoi(patchPart)
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", minorVersion, util.ErrInvalidVersion)
	}

	return Version{
		Major: major,
		Minor: minor,
		Patch: patch,
		Beta:  schemaChangeCount == "beta",
	}, nil
}
