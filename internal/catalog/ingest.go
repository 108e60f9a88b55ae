package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"

	"github.com/fauli/dawidx/internal/parse"
	"github.com/fauli/dawidx/internal/util"
)

// ProjectInput bundles one file's source metadata with its parse result,
// the unit the batched ingest protocol operates over.
type ProjectInput struct {
	Path       string
	Hash       string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Result     parse.Result
}

// Ingest runs the full 8-step batched upsert protocol for a set of parsed
// projects in a single transaction. Failure of any step aborts the whole
// batch; nothing is partially committed.
func (c *Catalog) Ingest(inputs []ProjectInput) (IngestStats, error) {
	var stats IngestStats
	now := time.Now().UTC()

	err := c.Transaction(func(tx *sql.Tx) error {
		// Step 1/3: canonicalize and upsert plugins.
		pluginIDs := make(map[string]string) // dev_identifier -> canonical uuid
		for _, in := range inputs {
			for _, p := range in.Result.Plugins {
				id, inserted, err := upsertPlugin(tx, p)
				if err != nil {
					return err
				}
				pluginIDs[p.DeviceID] = id
				if inserted {
					stats.PluginsInserted++
				}
			}
		}

		// Step 2/4: canonicalize and upsert samples.
		sampleIDs := make(map[string]string) // path -> canonical uuid
		for _, in := range inputs {
			for _, s := range in.Result.Samples {
				id, inserted, err := upsertSample(tx, s)
				if err != nil {
					return err
				}
				sampleIDs[s.Path] = id
				if inserted {
					stats.SamplesInserted++
				}
			}
		}

		// Step 5: insert/reactivate projects, then link and rebuild FTS.
		for _, in := range inputs {
			projectID, inserted, err := upsertProject(tx, in, now)
			if err != nil {
				return err
			}
			if inserted {
				stats.ProjectsInserted++
			}

			if err := linkProject(tx, projectID, in.Result, pluginIDs, sampleIDs); err != nil {
				return err
			}
			if err := rebuildSearchRow(tx, projectID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return IngestStats{}, util.NewDatabaseError("Ingest", util.KindTransient, err)
	}
	return stats, nil
}

func upsertPlugin(tx *sql.Tx, p parse.Plugin) (string, bool, error) {
	var existingID string
	var existingInstalled bool
	err := tx.QueryRow(`SELECT id, installed FROM plugins WHERE dev_identifier = ?`, p.DeviceID).
		Scan(&existingID, &existingInstalled)

	switch {
	case err == sql.ErrNoRows:
		id := uuid.NewString()
		_, err := tx.Exec(`
			INSERT INTO plugins (id, dev_identifier, name, format, vendor, version, sdk_version, flags, installed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		`, id, p.DeviceID, p.Name, int(p.Format), p.Vendor, p.Version, p.SDKVersion, p.Flags)
		if err != nil {
			return "", false, fmt.Errorf("insert plugin %s: %w", p.DeviceID, err)
		}
		return id, true, nil
	case err != nil:
		return "", false, fmt.Errorf("lookup plugin %s: %w", p.DeviceID, err)
	}

	// Union-of-non-null merge, installed = OR. Registry enrichment
	// only ever fills fields in, never clears a previously known one.
	_, err = tx.Exec(`
		UPDATE plugins SET
			name = COALESCE(NULLIF(?, ''), name),
			format = ?,
			vendor = COALESCE(?, vendor),
			version = COALESCE(?, version),
			sdk_version = COALESCE(?, sdk_version),
			flags = COALESCE(?, flags),
			installed = installed OR 1
		WHERE id = ?
	`, p.Name, int(p.Format), p.Vendor, p.Version, p.SDKVersion, p.Flags, existingID)
	if err != nil {
		return "", false, fmt.Errorf("merge plugin %s: %w", p.DeviceID, err)
	}
	return existingID, false, nil
}

func upsertSample(tx *sql.Tx, s parse.Sample) (string, bool, error) {
	var existingID string
	err := tx.QueryRow(`SELECT id FROM samples WHERE path = ?`, s.Path).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		id := uuid.NewString()
		present := 0
		if s.IsPresent {
			present = 1
		}
		_, err := tx.Exec(`
			INSERT INTO samples (id, path, name, is_present)
			VALUES (?, ?, ?, ?)
		`, id, s.Path, s.Name, present)
		if err != nil {
			return "", false, fmt.Errorf("insert sample %s: %w", s.Path, err)
		}
		return id, true, nil
	case err != nil:
		return "", false, fmt.Errorf("lookup sample %s: %w", s.Path, err)
	}

	// is_present = OR across re-ingests of the same sample.
	if s.IsPresent {
		_, err = tx.Exec(`UPDATE samples SET name = ?, is_present = 1 WHERE id = ?`, s.Name, existingID)
	} else {
		_, err = tx.Exec(`UPDATE samples SET name = ? WHERE id = ?`, s.Name, existingID)
	}
	if err != nil {
		return "", false, fmt.Errorf("merge sample %s: %w", s.Path, err)
	}
	return existingID, false, nil
}

func upsertProject(tx *sql.Tx, in ProjectInput, now time.Time) (string, bool, error) {
	r := in.Result

	var keyTonic, keyScale *int
	if r.KeySignature != nil {
		tonic := int(r.KeySignature.Tonic)
		scale := int(r.KeySignature.Scale)
		keyTonic, keyScale = &tonic, &scale
	}
	var duration *float64
	if d, ok := r.DurationSeconds(); ok {
		duration = &d
	}

	name := projectNameFromPath(in.Path)
	beta := 0
	if r.Version.Beta {
		beta = 1
	}

	// Existing active row at this exact path?
	var id string
	err := tx.QueryRow(`SELECT id FROM projects WHERE path = ? AND is_active = 1`, in.Path).Scan(&id)
	switch {
	case err == nil:
		_, execErr := tx.Exec(`
			UPDATE projects SET
				name = ?, hash = ?, modified_at = ?, last_parsed_at = ?,
				tempo = ?, ts_numerator = ?, ts_denominator = ?,
				key_tonic = ?, key_scale = ?, duration_seconds = ?, furthest_bar = ?,
				version_major = ?, version_minor = ?, version_patch = ?, version_beta = ?
			WHERE id = ?
		`, name, in.Hash, in.ModifiedAt, now,
			r.Tempo, r.TimeSignature.Numerator, r.TimeSignature.Denominator,
			keyTonic, keyScale, duration, r.FurthestBar,
			r.Version.Major, r.Version.Minor, r.Version.Patch, beta, id)
		return id, false, execErr
	case err != sql.ErrNoRows:
		return "", false, fmt.Errorf("lookup active project %s: %w", in.Path, err)
	}

	// Same content hash as an inactive row: the file moved, reactivate it
	// at the new path instead of inserting a duplicate.
	var reactivateID string
	err = tx.QueryRow(`SELECT id FROM projects WHERE hash = ? AND is_active = 0 LIMIT 1`, in.Hash).Scan(&reactivateID)
	if err == nil {
		_, execErr := tx.Exec(`
			UPDATE projects SET
				path = ?, is_active = 1, name = ?, modified_at = ?, last_parsed_at = ?,
				tempo = ?, ts_numerator = ?, ts_denominator = ?,
				key_tonic = ?, key_scale = ?, duration_seconds = ?, furthest_bar = ?,
				version_major = ?, version_minor = ?, version_patch = ?, version_beta = ?
			WHERE id = ?
		`, in.Path, name, now, now,
			r.Tempo, r.TimeSignature.Numerator, r.TimeSignature.Denominator,
			keyTonic, keyScale, duration, r.FurthestBar,
			r.Version.Major, r.Version.Minor, r.Version.Patch, beta, reactivateID)
		return reactivateID, false, execErr
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("lookup inactive project by hash: %w", err)
	}

	// Brand-new project.
	id = uuid.NewString()
	_, err = tx.Exec(`
		INSERT INTO projects (
			id, path, name, hash, created_at, modified_at, last_parsed_at,
			tempo, ts_numerator, ts_denominator, key_tonic, key_scale,
			duration_seconds, furthest_bar,
			version_major, version_minor, version_patch, version_beta, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, id, in.Path, name, in.Hash, in.CreatedAt, in.ModifiedAt, now,
		r.Tempo, r.TimeSignature.Numerator, r.TimeSignature.Denominator, keyTonic, keyScale,
		duration, r.FurthestBar,
		r.Version.Major, r.Version.Minor, r.Version.Patch, beta)
	if err != nil {
		return "", false, fmt.Errorf("insert project %s: %w", in.Path, err)
	}
	return id, true, nil
}

func linkProject(tx *sql.Tx, projectID string, r parse.Result, pluginIDs, sampleIDs map[string]string) error {
	for _, p := range r.Plugins {
		pluginID, ok := pluginIDs[p.DeviceID]
		if !ok {
			continue
		}
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO project_plugins (project_id, plugin_id) VALUES (?, ?)
		`, projectID, pluginID); err != nil {
			return fmt.Errorf("link plugin %s: %w", p.DeviceID, err)
		}
	}
	for _, s := range r.Samples {
		sampleID, ok := sampleIDs[s.Path]
		if !ok {
			continue
		}
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO project_samples (project_id, sample_id) VALUES (?, ?)
		`, projectID, sampleID); err != nil {
			return fmt.Errorf("link sample %s: %w", s.Path, err)
		}
	}
	return nil
}

// rebuildSearchRow implements step 7: delete then reinsert the project's
// FTS row so observers never see stale tokens from removed associations.
func rebuildSearchRow(tx *sql.Tx, projectID string) error {
	if _, err := tx.Exec(`DELETE FROM project_search WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete stale search row: %w", err)
	}

	var name, path string
	var tempo float64
	var modifiedAt, lastParsedAt time.Time
	var notes sql.NullString
	err := tx.QueryRow(`
		SELECT name, path, tempo, modified_at, last_parsed_at, notes
		FROM projects WHERE id = ?
	`, projectID).Scan(&name, &path, &tempo, &modifiedAt, &lastParsedAt, &notes)
	if err != nil {
		return fmt.Errorf("read project for search row: %w", err)
	}

	plugins, err := joinedColumn(tx, `
		SELECT COALESCE(p.name, '') || ' ' || COALESCE(p.vendor, '')
		FROM project_plugins pp JOIN plugins p ON p.id = pp.plugin_id
		WHERE pp.project_id = ?
	`, projectID)
	if err != nil {
		return err
	}
	samples, err := joinedColumn(tx, `
		SELECT COALESCE(s.name, '')
		FROM project_samples ps JOIN samples s ON s.id = ps.sample_id
		WHERE ps.project_id = ?
	`, projectID)
	if err != nil {
		return err
	}
	tags, err := joinedColumn(tx, `
		SELECT COALESCE(t.name, '')
		FROM project_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.project_id = ?
	`, projectID)
	if err != nil {
		return err
	}

	modifiedText, err := strftime.Format("%Y-%m-%d %H:%M:%S", modifiedAt)
	if err != nil {
		return fmt.Errorf("format modified_at for search row: %w", err)
	}
	lastParsedText, err := strftime.Format("%Y-%m-%d %H:%M:%S", lastParsedAt)
	if err != nil {
		return fmt.Errorf("format last_parsed_at for search row: %w", err)
	}
	timestamps := modifiedText + " " + lastParsedText
	tempoText := fmt.Sprintf("%g", tempo)

	_, err = tx.Exec(`
		INSERT INTO project_search (project_id, name, path, plugins, samples, tags, notes, timestamps, tempo_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, projectID, name, path, plugins, samples, tags, notes.String, timestamps, tempoText)
	if err != nil {
		return fmt.Errorf("insert search row: %w", err)
	}
	return nil
}

func joinedColumn(tx *sql.Tx, query string, args ...interface{}) (string, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return "", fmt.Errorf("search join query: %w", err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return "", fmt.Errorf("search join scan: %w", err)
		}
		parts = append(parts, strings.TrimSpace(v))
	}
	return strings.Join(parts, " "), rows.Err()
}

func projectNameFromPath(path string) string {
	base := path
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		base = path[i+1:]
	}
	return strings.TrimSuffix(base, filepathExt(base))
}

func filepathExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}
