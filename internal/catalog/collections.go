package catalog

import (
	"database/sql"

	"github.com/fauli/dawidx/internal/util"
)

// CreateCollection inserts a new named collection.
func (c *Catalog) CreateCollection(name, description, notes string) (int64, error) {
	res, err := c.db.Exec(`
		INSERT INTO collections (name, description, notes) VALUES (?, ?, ?)
	`, name, description, notes)
	if err != nil {
		return 0, util.NewDatabaseError("CreateCollection", util.KindConstraintViolation, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, util.NewDatabaseError("CreateCollection", util.KindTransient, err)
	}
	return id, nil
}

// AddProjectToCollection appends a project at the end of the collection's
// dense position range with no gaps.
func (c *Catalog) AddProjectToCollection(collectionID int64, projectID string) error {
	return c.Transaction(func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRow(`
			SELECT COUNT(*) FROM collection_projects WHERE collection_id = ?
		`, collectionID).Scan(&count); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO collection_projects (collection_id, project_id, position)
			VALUES (?, ?, ?)
		`, collectionID, projectID, count)
		return err
	})
}

// RemoveProjectFromCollection removes a project and renumbers the
// remaining positions to stay contiguous.
func (c *Catalog) RemoveProjectFromCollection(collectionID int64, projectID string) error {
	return c.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM collection_projects WHERE collection_id = ? AND project_id = ?
		`, collectionID, projectID); err != nil {
			return err
		}
		return renumberCollection(tx, collectionID)
	})
}

// ReorderProjectInCollection moves a project to newPosition (0-based),
// shifting intermediate members and keeping the range contiguous.
func (c *Catalog) ReorderProjectInCollection(collectionID int64, projectID string, newPosition int) error {
	return c.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT project_id FROM collection_projects
			WHERE collection_id = ? ORDER BY position
		`, collectionID)
		if err != nil {
			return err
		}
		var ordered []string
		for rows.Next() {
			var pid string
			if err := rows.Scan(&pid); err != nil {
				rows.Close()
				return err
			}
			ordered = append(ordered, pid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		reordered := make([]string, 0, len(ordered))
		for _, pid := range ordered {
			if pid != projectID {
				reordered = append(reordered, pid)
			}
		}
		if newPosition < 0 {
			newPosition = 0
		}
		if newPosition > len(reordered) {
			newPosition = len(reordered)
		}
		reordered = append(reordered[:newPosition], append([]string{projectID}, reordered[newPosition:]...)...)

		for pos, pid := range reordered {
			if _, err := tx.Exec(`
				UPDATE collection_projects SET position = ? WHERE collection_id = ? AND project_id = ?
			`, pos, collectionID, pid); err != nil {
				return err
			}
		}
		return nil
	})
}

func renumberCollection(tx *sql.Tx, collectionID int64) error {
	rows, err := tx.Query(`
		SELECT project_id FROM collection_projects
		WHERE collection_id = ? ORDER BY position
	`, collectionID)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, pid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for pos, pid := range ids {
		if _, err := tx.Exec(`
			UPDATE collection_projects SET position = ? WHERE collection_id = ? AND project_id = ?
		`, pos, collectionID, pid); err != nil {
			return err
		}
	}
	return nil
}

// GetCollectionProjects returns project ids in a collection, in position order.
func (c *Catalog) GetCollectionProjects(collectionID int64) ([]string, error) {
	rows, err := c.db.Query(`
		SELECT project_id FROM collection_projects
		WHERE collection_id = ? ORDER BY position
	`, collectionID)
	if err != nil {
		return nil, util.NewDatabaseError("GetCollectionProjects", util.KindTransient, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, util.NewDatabaseError("GetCollectionProjects", util.KindTransient, err)
		}
		ids = append(ids, pid)
	}
	return ids, rows.Err()
}
