package parse

import (
	"errors"
	"testing"

	"github.com/fauli/dawidx/internal/util"
)

func TestParseVersionHappyPath(t *testing.T) {
	v, err := ParseVersion("5", "12.0_12049", "0")
	if err != nil {
		t.Fatal(err)
	}
	if v.Major != 12 || v.Minor != 0 || v.Patch != 12049 || v.Beta {
		t.Fatalf("unexpected version: %+v", v)
	}
}

func TestParseVersionBeta(t *testing.T) {
	v, err := ParseVersion("5", "12.1_100", "beta")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Beta {
		t.Fatal("expected beta to be true")
	}
}

func TestParseVersionMissing(t *testing.T) {
	_, err := ParseVersion("5", "", "0")
	if !errors.Is(err, util.ErrMissingVersion) {
		t.Fatalf("expected ErrMissingVersion, got %v", err)
	}
}

func TestParseVersionMalformedShapes(t *testing.T) {
	cases := []string{"12_12049", "12.0", "abc.0_1", "12.abc_1", "12.0_abc", ""}
	for _, shape := range cases {
		if shape == "" {
			continue // covered by TestParseVersionMissing
		}
		_, err := ParseVersion("5", shape, "0")
		if !errors.Is(err, util.ErrInvalidVersion) {
			t.Fatalf("shape %q: expected ErrInvalidVersion, got %v", shape, err)
		}
	}
}

func TestVersionString(t *testing.T) {
	v := Version{Major: 12, Minor: 0, Patch: 12049}
	if v.String() != "12.0.12049" {
		t.Fatalf("unexpected string: %s", v.String())
	}
	v.Beta = true
	if v.String() != "12.0.12049-beta" {
		t.Fatalf("unexpected beta string: %s", v.String())
	}
}
