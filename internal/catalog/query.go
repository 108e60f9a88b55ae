package catalog

import (
	"database/sql"
	"time"

	"github.com/fauli/dawidx/internal/util"
)

// GetLastParsedAt returns the last-parsed timestamp for path's active
// project row, or (zero, false) if there is none.
func (c *Catalog) GetLastParsedAt(path string) (time.Time, bool, error) {
	var t time.Time
	err := c.db.QueryRow(`
		SELECT last_parsed_at FROM projects WHERE path = ? AND is_active = 1
	`, path).Scan(&t)
	switch {
	case err == sql.ErrNoRows:
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, util.NewDatabaseError("GetLastParsedAt", util.KindTransient, err)
	}
	return t, true, nil
}

// GetActiveProjects returns metadata for every active project, used by the
// watcher's offline reconciliation pass.
func (c *Catalog) GetActiveProjects() ([]Project, error) {
	rows, err := c.db.Query(`
		SELECT id, path, name, hash, created_at, modified_at, last_parsed_at,
		       tempo, ts_numerator, ts_denominator, key_tonic, key_scale, is_active, COALESCE(notes, '')
		FROM projects WHERE is_active = 1
	`)
	if err != nil {
		return nil, util.NewDatabaseError("GetActiveProjects", util.KindTransient, err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var active int
		if err := rows.Scan(&p.ID, &p.Path, &p.Name, &p.Hash, &p.CreatedAt, &p.ModifiedAt,
			&p.LastParsedAt, &p.Tempo, &p.TSNumerator, &p.TSDenominator, &p.KeyTonic, &p.KeyScale,
			&active, &p.Notes); err != nil {
			return nil, util.NewDatabaseError("GetActiveProjects", util.KindTransient, err)
		}
		p.IsActive = active != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProjectByPath returns the active project row at path, or nil if none.
func (c *Catalog) GetProjectByPath(path string) (*Project, error) {
	var p Project
	var active int
	err := c.db.QueryRow(`
		SELECT id, path, name, hash, created_at, modified_at, last_parsed_at,
		       tempo, ts_numerator, ts_denominator, is_active, COALESCE(notes, '')
		FROM projects WHERE path = ? AND is_active = 1
	`, path).Scan(&p.ID, &p.Path, &p.Name, &p.Hash, &p.CreatedAt, &p.ModifiedAt,
		&p.LastParsedAt, &p.Tempo, &p.TSNumerator, &p.TSDenominator, &active, &p.Notes)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, util.NewDatabaseError("GetProjectByPath", util.KindTransient, err)
	}
	p.IsActive = active != 0
	return &p, nil
}

// UpdateProjectPath moves an active project row to newPath, used when the
// watcher observes a rename of a file it already knows about.
func (c *Catalog) UpdateProjectPath(projectID, newPath string) error {
	res, err := c.db.Exec(`UPDATE projects SET path = ? WHERE id = ?`, newPath, projectID)
	if err != nil {
		return util.NewDatabaseError("UpdateProjectPath", util.KindTransient, err)
	}
	return requireRowAffected(res, "UpdateProjectPath")
}

// FindInactiveByHash returns an inactive project row matching hash, for
// reactivation decisions made outside of an ingest batch (e.g. the watcher).
func (c *Catalog) FindInactiveByHash(hash string) (*Project, error) {
	var p Project
	var active int
	err := c.db.QueryRow(`
		SELECT id, path, name, hash, created_at, modified_at, last_parsed_at,
		       tempo, ts_numerator, ts_denominator, is_active, COALESCE(notes, '')
		FROM projects WHERE hash = ? AND is_active = 0 LIMIT 1
	`, hash).Scan(&p.ID, &p.Path, &p.Name, &p.Hash, &p.CreatedAt, &p.ModifiedAt,
		&p.LastParsedAt, &p.Tempo, &p.TSNumerator, &p.TSDenominator, &active, &p.Notes)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, util.NewDatabaseError("FindInactiveByHash", util.KindTransient, err)
	}
	p.IsActive = active != 0
	return &p, nil
}

// MarkArchived flips a project's is_active flag, used by the watcher's
// Delete handling (archived, never removed) and by explicit archive/restore.
func (c *Catalog) MarkArchived(projectID string, archived bool) error {
	active := 1
	if archived {
		active = 0
	}
	res, err := c.db.Exec(`UPDATE projects SET is_active = ? WHERE id = ?`, active, projectID)
	if err != nil {
		return util.NewDatabaseError("MarkArchived", util.KindTransient, err)
	}
	return requireRowAffected(res, "MarkArchived")
}

// Reactivate turns an archived project row back into the active row at
// newPath, used when a hash match shows a moved file is really the same
// project rather than a new one.
func (c *Catalog) Reactivate(projectID, newPath string) error {
	res, err := c.db.Exec(`
		UPDATE projects SET path = ?, is_active = 1, modified_at = ?
		WHERE id = ?
	`, newPath, time.Now().UTC(), projectID)
	if err != nil {
		return util.NewDatabaseError("Reactivate", util.KindConstraintViolation, err)
	}
	return requireRowAffected(res, "Reactivate")
}

// DeleteArchived permanently removes an archived project row. Refuses to
// delete an active project.
func (c *Catalog) DeleteArchived(projectID string) error {
	var active int
	err := c.db.QueryRow(`SELECT is_active FROM projects WHERE id = ?`, projectID).Scan(&active)
	if err == sql.ErrNoRows {
		return util.NewDatabaseError("DeleteArchived", util.KindNotFound, util.ErrNotFound)
	}
	if err != nil {
		return util.NewDatabaseError("DeleteArchived", util.KindTransient, err)
	}
	if active != 0 {
		return util.NewDatabaseError("DeleteArchived", util.KindInvalidOperation,
			errMustArchiveBeforeDelete)
	}

	_, err = c.db.Exec(`DELETE FROM project_search WHERE project_id = ?`, projectID)
	if err != nil {
		return util.NewDatabaseError("DeleteArchived", util.KindTransient, err)
	}
	res, err := c.db.Exec(`DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return util.NewDatabaseError("DeleteArchived", util.KindTransient, err)
	}
	return requireRowAffected(res, "DeleteArchived")
}

func requireRowAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return util.NewDatabaseError(op, util.KindTransient, err)
	}
	if n == 0 {
		return util.NewDatabaseError(op, util.KindNotFound, util.ErrNotFound)
	}
	return nil
}
