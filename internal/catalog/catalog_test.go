package catalog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fauli/dawidx/internal/parse"
	"github.com/fauli/dawidx/internal/util"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func basicResult() parse.Result {
	return parse.Result{
		Version:       parse.Version{Major: 12, Minor: 0, Patch: 1},
		Tempo:         120,
		TimeSignature: parse.TimeSignature{Numerator: 4, Denominator: 4},
		Plugins: []parse.Plugin{
			{DeviceID: "device:vst3:audiofx:abc", Name: "Pro-Q 3", Format: parse.FormatVST3Effect},
		},
		Samples: []parse.Sample{
			{Path: "/music/kick.wav", Name: "kick.wav", IsPresent: true},
		},
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.CheckIntegrity(); err != nil {
		t.Fatal(err)
	}
}

func TestIngestInsertsNewProject(t *testing.T) {
	c := openTestCatalog(t)
	in := ProjectInput{
		Path: "/music/song.als", Hash: "aaaaaaaa",
		CreatedAt: time.Now(), ModifiedAt: time.Now(),
		Result: basicResult(),
	}
	stats, err := c.Ingest([]ProjectInput{in})
	if err != nil {
		t.Fatal(err)
	}
	if stats.ProjectsInserted != 1 || stats.PluginsInserted != 1 || stats.SamplesInserted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	projects, err := c.GetActiveProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Path != "/music/song.als" {
		t.Fatalf("unexpected active projects: %+v", projects)
	}
}

func TestIngestReingestSamePathUpdatesInPlace(t *testing.T) {
	c := openTestCatalog(t)
	in := ProjectInput{Path: "/music/song.als", Hash: "aaaaaaaa", CreatedAt: time.Now(), ModifiedAt: time.Now(), Result: basicResult()}
	if _, err := c.Ingest([]ProjectInput{in}); err != nil {
		t.Fatal(err)
	}

	in2 := in
	in2.Hash = "bbbbbbbb"
	r2 := basicResult()
	r2.Tempo = 140
	in2.Result = r2
	stats, err := c.Ingest([]ProjectInput{in2})
	if err != nil {
		t.Fatal(err)
	}
	if stats.ProjectsInserted != 0 {
		t.Fatalf("expected in-place update, got projects_inserted=%d", stats.ProjectsInserted)
	}

	projects, err := c.GetActiveProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Tempo != 140 || projects[0].Hash != "bbbbbbbb" {
		t.Fatalf("unexpected project after re-ingest: %+v", projects)
	}
}

func TestIngestReactivatesSameHashAtNewPath(t *testing.T) {
	c := openTestCatalog(t)
	in := ProjectInput{Path: "/music/a.als", Hash: "hash1", CreatedAt: time.Now(), ModifiedAt: time.Now(), Result: basicResult()}
	if _, err := c.Ingest([]ProjectInput{in}); err != nil {
		t.Fatal(err)
	}
	projects, _ := c.GetActiveProjects()
	originalID := projects[0].ID

	if err := c.MarkArchived(originalID, true); err != nil {
		t.Fatal(err)
	}

	moved := in
	moved.Path = "/music/b.als"
	stats, err := c.Ingest([]ProjectInput{moved})
	if err != nil {
		t.Fatal(err)
	}
	if stats.ProjectsInserted != 0 {
		t.Fatalf("expected reactivation not insertion, got %+v", stats)
	}

	active, err := c.GetActiveProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != originalID || active[0].Path != "/music/b.als" {
		t.Fatalf("expected reactivated row at new path, got %+v", active)
	}
}

func TestIngestMergesPluginByDeviceID(t *testing.T) {
	c := openTestCatalog(t)
	r1 := basicResult()
	r1.Plugins[0].Name = "Pro-Q 3"
	in1 := ProjectInput{Path: "/music/a.als", Hash: "h1", CreatedAt: time.Now(), ModifiedAt: time.Now(), Result: r1}

	r2 := basicResult()
	r2.Plugins[0].Name = "Pro-Q 3" // same device id
	in2 := ProjectInput{Path: "/music/b.als", Hash: "h2", CreatedAt: time.Now(), ModifiedAt: time.Now(), Result: r2}

	if _, err := c.Ingest([]ProjectInput{in1, in2}); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := c.DB().QueryRow(`SELECT COUNT(*) FROM plugins`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected plugins deduped to 1 row, got %d", count)
	}
}

func TestDeleteArchivedRefusesActiveProject(t *testing.T) {
	c := openTestCatalog(t)
	in := ProjectInput{Path: "/music/a.als", Hash: "h1", CreatedAt: time.Now(), ModifiedAt: time.Now(), Result: basicResult()}
	if _, err := c.Ingest([]ProjectInput{in}); err != nil {
		t.Fatal(err)
	}
	projects, _ := c.GetActiveProjects()

	err := c.DeleteArchived(projects[0].ID)
	var dbErr *util.DatabaseError
	if !errors.As(err, &dbErr) || dbErr.Kind != util.KindInvalidOperation {
		t.Fatalf("expected KindInvalidOperation, got %v", err)
	}
}

func TestTagProjectRoundTrip(t *testing.T) {
	c := openTestCatalog(t)
	in := ProjectInput{Path: "/music/a.als", Hash: "h1", CreatedAt: time.Now(), ModifiedAt: time.Now(), Result: basicResult()}
	if _, err := c.Ingest([]ProjectInput{in}); err != nil {
		t.Fatal(err)
	}
	projects, _ := c.GetActiveProjects()

	tagID, err := c.AddTag("ambient")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.TagProject(projects[0].ID, tagID); err != nil {
		t.Fatal(err)
	}

	tags, err := c.GetProjectTags(projects[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0] != "ambient" {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

func TestCollectionOrderingStaysContiguous(t *testing.T) {
	c := openTestCatalog(t)
	var ids []string
	for i := 0; i < 3; i++ {
		in := ProjectInput{
			Path: filepath.Join("/music", string(rune('a'+i))+".als"),
			Hash: string(rune('a' + i)), CreatedAt: time.Now(), ModifiedAt: time.Now(),
			Result: basicResult(),
		}
		if _, err := c.Ingest([]ProjectInput{in}); err != nil {
			t.Fatal(err)
		}
	}
	active, _ := c.GetActiveProjects()
	for _, p := range active {
		ids = append(ids, p.ID)
	}

	collID, err := c.CreateCollection("Set 1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if err := c.AddProjectToCollection(collID, id); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.RemoveProjectFromCollection(collID, ids[0]); err != nil {
		t.Fatal(err)
	}

	ordered, err := c.GetCollectionProjects(collID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ordered) != 2 {
		t.Fatalf("expected 2 remaining members, got %d", len(ordered))
	}

	var positions []int
	rows, err := c.DB().Query(`SELECT position FROM collection_projects WHERE collection_id = ? ORDER BY position`, collID)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			t.Fatal(err)
		}
		positions = append(positions, pos)
	}
	if len(positions) != 2 || positions[0] != 0 || positions[1] != 1 {
		t.Fatalf("expected contiguous positions [0 1], got %v", positions)
	}
}
