package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/shared"
)

// ProjectRepository handles project and collaborator persistence.
//
// It also implements [models.AccessChecker]: a user has access when they own
// the project or appear in its collaborators table.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository with the given database connection
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project with an empty task chain.
func (r *ProjectRepository) Create(ctx context.Context, ownerID, name string) (*models.Project, error) {
	project := models.Project{OwnerID: ownerID, Name: name}
	if err := project.Validate(); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO projects (owner_id, name) VALUES (?, ?)", ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert project: %v", shared.ErrStorage, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read project id: %v", shared.ErrStorage, err)
	}

	project.ID = id
	return &project, nil
}

// Get retrieves a project by id.
func (r *ProjectRepository) Get(ctx context.Context, id int64) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, first_task FROM projects WHERE id = ?", id)
	return scanProject(row, id)
}

// List retrieves every project the user owns or collaborates on, ordered by id.
func (r *ProjectRepository) List(ctx context.Context, userID string) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT p.id, p.owner_id, p.name, p.first_task
		FROM projects p
		LEFT JOIN collaborators c ON c.project_id = p.id
		WHERE p.owner_id = ? OR c.user_id = ?
		ORDER BY p.id ASC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query projects: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		var firstTask sql.NullInt64
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &firstTask); err != nil {
			return nil, fmt.Errorf("%w: failed to scan project: %v", shared.ErrStorage, err)
		}
		if firstTask.Valid {
			p.FirstTask = &firstTask.Int64
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}

	return projects, nil
}

// Delete removes a project; its task chain and collaborator rows cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete project: %v", shared.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: project %d", shared.ErrNotFound, id)
	}

	return nil
}

// AddCollaborator grants a user access to the project.
func (r *ProjectRepository) AddCollaborator(ctx context.Context, projectID int64, userID string) error {
	if _, err := r.Get(ctx, projectID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collaborators (project_id, user_id) VALUES (?, ?)",
		projectID, userID)
	if err != nil {
		return fmt.Errorf("%w: failed to add collaborator: %v", shared.ErrStorage, err)
	}
	return nil
}

// RemoveCollaborator revokes a user's access to the project.
func (r *ProjectRepository) RemoveCollaborator(ctx context.Context, projectID int64, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM collaborators WHERE project_id = ? AND user_id = ?",
		projectID, userID)
	if err != nil {
		return fmt.Errorf("%w: failed to remove collaborator: %v", shared.ErrStorage, err)
	}
	return nil
}

// HasAccess reports whether the user owns the project or collaborates on it.
func (r *ProjectRepository) HasAccess(ctx context.Context, projectID int64, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM projects WHERE id = ? AND owner_id = ?
			UNION
			SELECT 1 FROM collaborators WHERE project_id = ? AND user_id = ?
		)
	`, projectID, userID, projectID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%w: access check failed: %v", shared.ErrStorage, err)
	}
	return ok, nil
}

// IsOwner reports whether the user owns the project.
func (r *ProjectRepository) IsOwner(ctx context.Context, projectID int64, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM projects WHERE id = ? AND owner_id = ?)",
		projectID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%w: owner check failed: %v", shared.ErrStorage, err)
	}
	return ok, nil
}

// scanProject scans a single project row.
func scanProject(row *sql.Row, id int64) (*models.Project, error) {
	var p models.Project
	var firstTask sql.NullInt64

	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &firstTask)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: project %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan project: %v", shared.ErrStorage, err)
	}

	if firstTask.Valid {
		p.FirstTask = &firstTask.Int64
	}
	return &p, nil
}
