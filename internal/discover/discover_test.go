package discover

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.als"))
	writeFile(t, filepath.Join(root, "b.txt"))
	writeFile(t, filepath.Join(root, "sub", "c.als"))

	got, err := Discover(context.Background(), root, ".als")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	want := []string{filepath.Join(root, "a.als"), filepath.Join(root, "sub", "c.als")}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDiscoverExcludesBackupSubtree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.als"))
	writeFile(t, filepath.Join(root, "Backup", "a.als"))

	got, err := Discover(context.Background(), root, ".als")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != filepath.Join(root, "a.als") {
		t.Fatalf("expected only the top-level project, got %v", got)
	}
}

func TestDiscoverExtensionIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.ALS"))

	got, err := Discover(context.Background(), root, ".als")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected case-insensitive match, got %v", got)
	}
}

func TestDiscoverFollowsSymlinkedDirButBreaksCycle(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "real")
	writeFile(t, filepath.Join(sub, "a.als"))

	link := filepath.Join(root, "link")
	if err := os.Symlink(sub, link); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	// Self-referential cycle: real/loop -> root.
	cycle := filepath.Join(sub, "loop")
	if err := os.Symlink(root, cycle); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	got, err := Discover(context.Background(), root, ".als")
	if err != nil {
		t.Fatal(err)
	}
	// Exactly one discovery of a.als despite two traversal paths (direct
	// and via the symlink), thanks to the visited-inode set.
	count := 0
	for _, p := range got {
		if filepath.Base(p) == "a.als" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected a.als discovered exactly once, got %d times in %v", count, got)
	}
}
