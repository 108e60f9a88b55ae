package catalog

import "github.com/fauli/dawidx/internal/util"

// AddTask creates a new per-project todo item.
func (c *Catalog) AddTask(projectID, description string) (int64, error) {
	res, err := c.db.Exec(`
		INSERT INTO project_tasks (project_id, description) VALUES (?, ?)
	`, projectID, description)
	if err != nil {
		return 0, util.NewDatabaseError("AddTask", util.KindConstraintViolation, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, util.NewDatabaseError("AddTask", util.KindTransient, err)
	}
	return id, nil
}

// CompleteTask flips a task's completed flag.
func (c *Catalog) CompleteTask(taskID int64, completed bool) error {
	done := 0
	if completed {
		done = 1
	}
	res, err := c.db.Exec(`UPDATE project_tasks SET completed = ? WHERE id = ?`, done, taskID)
	if err != nil {
		return util.NewDatabaseError("CompleteTask", util.KindTransient, err)
	}
	return requireRowAffected(res, "CompleteTask")
}

// RemoveTask deletes a task.
func (c *Catalog) RemoveTask(taskID int64) error {
	res, err := c.db.Exec(`DELETE FROM project_tasks WHERE id = ?`, taskID)
	if err != nil {
		return util.NewDatabaseError("RemoveTask", util.KindTransient, err)
	}
	return requireRowAffected(res, "RemoveTask")
}

// GetProjectTasks returns every task recorded against a project.
func (c *Catalog) GetProjectTasks(projectID string) ([]Task, error) {
	rows, err := c.db.Query(`
		SELECT id, project_id, description, completed, created_at
		FROM project_tasks WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return nil, util.NewDatabaseError("GetProjectTasks", util.KindTransient, err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var completed int
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Description, &completed, &t.CreatedAt); err != nil {
			return nil, util.NewDatabaseError("GetProjectTasks", util.KindTransient, err)
		}
		t.Completed = completed != 0
		out = append(out, t)
	}
	return out, rows.Err()
}
