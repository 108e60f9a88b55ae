package coordinate

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeProjectFixture(t *testing.T, dir, name, xmlDoc string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(xmlDoc)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validDoc = `<Ableton MajorVersion="5" MinorVersion="12.0_12049" SchemaChangeCount="0"><LiveSet><Tempo><Manual Value="120.0"/></Tempo><EnumEvent Value="201"/></LiveSet></Ableton>`

func TestRunParsesValidProjects(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeProjectFixture(t, dir, "a.als", validDoc),
		writeProjectFixture(t, dir, "b.als", validDoc),
		writeProjectFixture(t, dir, "c.als", validDoc),
	}

	results := Run(paths)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected error for %s: %v", r.Path, r.Err)
		}
		if r.Result.Tempo != 120 {
			t.Errorf("unexpected tempo for %s: %v", r.Path, r.Result.Tempo)
		}
		if r.Info.Hash == "" {
			t.Errorf("expected non-empty hash for %s", r.Path)
		}
	}
}

func TestRunReportsPerFileErrorsWithoutAbortingBatch(t *testing.T) {
	dir := t.TempDir()
	good := writeProjectFixture(t, dir, "good.als", validDoc)
	bad := filepath.Join(dir, "bad.als")
	if err := os.WriteFile(bad, []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := Run([]string{good, bad})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var sawGood, sawBad bool
	for _, r := range results {
		if r.Path == good && r.Err == nil {
			sawGood = true
		}
		if r.Path == bad && r.Err != nil {
			sawBad = true
		}
	}
	if !sawGood || !sawBad {
		t.Fatalf("expected one success and one failure, got %+v", results)
	}
}

func TestRunEmptyInput(t *testing.T) {
	if results := Run(nil); results != nil {
		t.Fatalf("expected nil for empty input, got %v", results)
	}
}

func TestWorkerCountClamps(t *testing.T) {
	cases := []struct{ candidates, want int }{
		{0, 1}, {1, 1}, {2, 1}, {8, 4}, {100, 4},
	}
	for _, c := range cases {
		if got := workerCount(c.candidates); got != c.want {
			t.Errorf("workerCount(%d) = %d, want %d", c.candidates, got, c.want)
		}
	}
}
