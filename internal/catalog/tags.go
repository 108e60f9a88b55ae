package catalog

import (
	"database/sql"

	"github.com/fauli/dawidx/internal/util"
)

// AddTag creates a tag if it doesn't already exist and returns its id.
func (c *Catalog) AddTag(name string) (int64, error) {
	res, err := c.db.Exec(`INSERT OR IGNORE INTO tags (name) VALUES (?)`, name)
	if err != nil {
		return 0, util.NewDatabaseError("AddTag", util.KindTransient, err)
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		return id, nil
	}
	var id int64
	if err := c.db.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, util.NewDatabaseError("AddTag", util.KindTransient, err)
	}
	return id, nil
}

// RemoveTag deletes a tag and its associations (CASCADE).
func (c *Catalog) RemoveTag(tagID int64) error {
	res, err := c.db.Exec(`DELETE FROM tags WHERE id = ?`, tagID)
	if err != nil {
		return util.NewDatabaseError("RemoveTag", util.KindTransient, err)
	}
	return requireRowAffected(res, "RemoveTag")
}

// TagProject associates a tag with a project and rebuilds the project's
// search row so the new tag becomes findable immediately.
func (c *Catalog) TagProject(projectID string, tagID int64) error {
	return c.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO project_tags (project_id, tag_id) VALUES (?, ?)
		`, projectID, tagID); err != nil {
			return err
		}
		return rebuildSearchRow(tx, projectID)
	})
}

// UntagProject removes a tag association and rebuilds the search row so no
// stale tag token survives.
func (c *Catalog) UntagProject(projectID string, tagID int64) error {
	return c.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM project_tags WHERE project_id = ? AND tag_id = ?
		`, projectID, tagID); err != nil {
			return err
		}
		return rebuildSearchRow(tx, projectID)
	})
}

// GetProjectTags returns the tag names attached to a project.
func (c *Catalog) GetProjectTags(projectID string) ([]string, error) {
	rows, err := c.db.Query(`
		SELECT t.name FROM project_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.project_id = ?
	`, projectID)
	if err != nil {
		return nil, util.NewDatabaseError("GetProjectTags", util.KindTransient, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, util.NewDatabaseError("GetProjectTags", util.KindTransient, err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
