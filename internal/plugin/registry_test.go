package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type stubRegistry struct {
	info Info
	ok   bool
	err  error
}

func (s stubRegistry) Lookup(ctx context.Context, deviceIdentifier string) (Info, bool, error) {
	return s.info, s.ok, s.err
}

func TestEnrichReturnsMissWhenGlobalUnset(t *testing.T) {
	orig := Global
	Global = nil
	defer func() { Global = orig }()

	_, ok := Enrich("device:vst3:audiofx:1097468280")
	if ok {
		t.Fatal("expected miss with no registry configured")
	}
}

func TestEnrichReturnsInfoFromGlobal(t *testing.T) {
	orig := Global
	Global = stubRegistry{info: Info{Vendor: "Spectrasonics"}, ok: true}
	defer func() { Global = orig }()

	info, ok := Enrich("device:vst3:instr:123")
	if !ok || info.Vendor != "Spectrasonics" {
		t.Fatalf("unexpected result: %+v %v", info, ok)
	}
}

func TestEnrichTreatsLookupErrorAsMiss(t *testing.T) {
	orig := Global
	Global = stubRegistry{err: errors.New("boom")}
	defer func() { Global = orig }()

	_, ok := Enrich("device:vst:audiofx:123")
	if ok {
		t.Fatal("expected miss on lookup error")
	}
}

func TestMostRecentDBFilePicksNewest(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "Live-11.db")
	newer := filepath.Join(dir, "Live-12.db")

	if err := os.WriteFile(older, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	oldTime := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := mostRecentDBFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Fatalf("expected %s, got %s", newer, got)
	}
}

func TestMostRecentDBFileIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := mostRecentDBFile(dir); err == nil {
		t.Fatal("expected error when no .db file present")
	}
}
