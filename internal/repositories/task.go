package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/outline"
	"github.com/calebmds/taskchain/internal/shared"
)

// querier is satisfied by both *sql.DB and *sql.Tx so neighborhood loads can
// run inside the mutation transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TaskRepository is the task record store. It persists chain edits computed
// by the outline manager; every pointer update is guarded by its expected
// prior value so a stale snapshot surfaces as ErrConflict instead of
// corrupting the chain.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Begin opens the storage transaction wrapping one mutation.
func (r *TaskRepository) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStorage, err)
	}
	return tx, nil
}

// LoadNeighborhood loads the minimal chain region an operation on taskID
// needs: the project head, the task, its predecessor, and its contiguous
// descendant run. A nil taskID loads the head-insert neighborhood (project
// row only).
//
// Traversal is bounded to the project's own chain; ids from other projects
// never resolve because task identity is (project_id, id).
func (r *TaskRepository) LoadNeighborhood(ctx context.Context, q querier, projectID int64, taskID *int64) (*outline.Neighborhood, error) {
	project, err := loadProject(ctx, q, projectID)
	if err != nil {
		return nil, err
	}

	n := &outline.Neighborhood{Project: *project}
	if taskID == nil {
		return n, nil
	}

	task, err := loadTask(ctx, q, projectID, *taskID)
	if err != nil {
		return nil, err
	}
	n.Task = task

	pred, err := loadPredecessor(ctx, q, projectID, *taskID)
	if err != nil {
		return nil, err
	}
	n.Predecessor = pred

	cursor := task.Next
	for cursor != nil {
		succ, err := loadTask(ctx, q, projectID, *cursor)
		if err != nil {
			return nil, err
		}
		if succ.Level <= task.Level {
			break
		}
		n.Descendants = append(n.Descendants, *succ)
		cursor = succ.Next
	}

	return n, nil
}

// Apply persists an edit set inside the given transaction. Guarded updates
// that match no row abort with ErrConflict. Returns the inserted task, if
// the edit set contains one, with its assigned id.
func (r *TaskRepository) Apply(ctx context.Context, tx *sql.Tx, edits *outline.EditSet) (*models.Task, error) {
	var inserted *models.Task

	if ins := edits.Insert; ins != nil {
		task, err := insertTask(ctx, tx, edits.ProjectID, ins)
		if err != nil {
			return nil, err
		}
		inserted = task
	}

	if head := edits.SetHead; head != nil {
		if err := guardedExec(ctx, tx,
			"UPDATE projects SET first_task = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND first_task IS ?",
			head.To, edits.ProjectID, head.From); err != nil {
			return nil, err
		}
	}

	for _, edit := range edits.SetNext {
		if err := guardedExec(ctx, tx,
			"UPDATE tasks SET next = ?, updated_at = CURRENT_TIMESTAMP WHERE project_id = ? AND id = ? AND next IS ?",
			edit.To, edits.ProjectID, edit.TaskID, edit.From); err != nil {
			return nil, err
		}
	}

	for _, edit := range edits.SetLevel {
		if err := guardedExec(ctx, tx,
			"UPDATE tasks SET level = ?, updated_at = CURRENT_TIMESTAMP WHERE project_id = ? AND id = ?",
			edit.Level, edits.ProjectID, edit.TaskID); err != nil {
			return nil, err
		}
	}

	if edit := edits.SetValue; edit != nil {
		if err := guardedExec(ctx, tx,
			"UPDATE tasks SET value = ?, updated_at = CURRENT_TIMESTAMP WHERE project_id = ? AND id = ?",
			edit.Value, edits.ProjectID, edit.TaskID); err != nil {
			return nil, err
		}
	}

	for _, edit := range edits.SetCompleted {
		if err := guardedExec(ctx, tx,
			"UPDATE tasks SET completed = ?, updated_at = CURRENT_TIMESTAMP WHERE project_id = ? AND id = ?",
			edit.Completed, edits.ProjectID, edit.TaskID); err != nil {
			return nil, err
		}
	}

	for _, id := range edits.Delete {
		if err := guardedExec(ctx, tx,
			"DELETE FROM tasks WHERE project_id = ? AND id = ?",
			edits.ProjectID, id); err != nil {
			return nil, err
		}
	}

	return inserted, nil
}

// Get retrieves one task by its in-project id.
func (r *TaskRepository) Get(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	return loadTask(ctx, r.db, projectID, taskID)
}

// Snapshot materializes and validates the project's full ordered chain.
func (r *TaskRepository) Snapshot(ctx context.Context, projectID int64) (*outline.Chain, error) {
	project, err := loadProject(ctx, r.db, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT project_id, id, value, level, completed, next FROM tasks WHERE project_id = ?",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tasks: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}

	return outline.BuildChain(*project, tasks)
}

// insertTask assigns the next per-project id, inserts the row, and splices
// it into the chain with a guarded pointer update.
func insertTask(ctx context.Context, tx *sql.Tx, projectID int64, ins *outline.Insert) (*models.Task, error) {
	var nextID int64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(id), 0) + 1 FROM tasks WHERE project_id = ?",
		projectID).Scan(&nextID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to allocate task id: %v", shared.ErrStorage, err)
	}

	task := ins.Task
	task.ID = nextID
	task.ProjectID = projectID
	if err := task.Validate(); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO tasks (project_id, id, value, level, completed, next) VALUES (?, ?, ?, ?, ?, ?)",
		task.ProjectID, task.ID, task.Value, task.Level, task.Completed, task.Next)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert task: %v", shared.ErrStorage, err)
	}

	// Splice guard: whoever pointed at the new task's successor must still
	// do so, otherwise another writer restructured this region first.
	if ins.PredecessorID == nil {
		err = guardedExec(ctx, tx,
			"UPDATE projects SET first_task = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND first_task IS ?",
			task.ID, projectID, task.Next)
	} else {
		err = guardedExec(ctx, tx,
			"UPDATE tasks SET next = ?, updated_at = CURRENT_TIMESTAMP WHERE project_id = ? AND id = ? AND next IS ?",
			task.ID, projectID, *ins.PredecessorID, task.Next)
	}
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// guardedExec runs a statement that must affect exactly one row; zero rows
// means the loaded snapshot went stale under a concurrent edit.
func guardedExec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: chain region changed underneath the edit", shared.ErrConflict)
	}
	return nil
}

func loadProject(ctx context.Context, q querier, projectID int64) (*models.Project, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, owner_id, name, first_task FROM projects WHERE id = ?", projectID)
	return scanProject(row, projectID)
}

func loadTask(ctx context.Context, q querier, projectID, taskID int64) (*models.Task, error) {
	var task models.Task
	var next sql.NullInt64

	err := q.QueryRowContext(ctx,
		"SELECT project_id, id, value, level, completed, next FROM tasks WHERE project_id = ? AND id = ?",
		projectID, taskID).Scan(&task.ProjectID, &task.ID, &task.Value, &task.Level, &task.Completed, &next)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: task %d in project %d", shared.ErrNotFound, taskID, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan task: %v", shared.ErrStorage, err)
	}

	if next.Valid {
		task.Next = &next.Int64
	}
	return &task, nil
}

// loadPredecessor finds the task pointing at taskID, nil when taskID is the
// chain head. The single-chain invariant guarantees at most one pointer.
func loadPredecessor(ctx context.Context, q querier, projectID, taskID int64) (*models.Task, error) {
	var task models.Task
	var next sql.NullInt64

	err := q.QueryRowContext(ctx,
		"SELECT project_id, id, value, level, completed, next FROM tasks WHERE project_id = ? AND next = ?",
		projectID, taskID).Scan(&task.ProjectID, &task.ID, &task.Value, &task.Level, &task.Completed, &next)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan predecessor: %v", shared.ErrStorage, err)
	}

	if next.Valid {
		task.Next = &next.Int64
	}
	return &task, nil
}

// scanTask scans a task row from [sql.Rows].
func scanTask(rows *sql.Rows) (*models.Task, error) {
	var task models.Task
	var next sql.NullInt64

	if err := rows.Scan(&task.ProjectID, &task.ID, &task.Value, &task.Level, &task.Completed, &next); err != nil {
		return nil, fmt.Errorf("%w: failed to scan task: %v", shared.ErrStorage, err)
	}

	if next.Valid {
		task.Next = &next.Int64
	}
	return &task, nil
}
