// Package service implements the mutation pipeline: every outline operation
// passes the admission gate, runs against a fresh snapshot of its chain
// neighborhood inside one storage transaction, and broadcasts its delta to
// the project's subscriber group after the commit.
//
// Conflicting concurrent edits surface as shared.ErrConflict from the guarded
// storage writes; callers retry with a fresh snapshot.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/calebmds/taskchain/internal/gate"
	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/outline"
	"github.com/calebmds/taskchain/internal/realtime"
	"github.com/calebmds/taskchain/internal/repositories"
	"github.com/calebmds/taskchain/internal/shared"
)

// TaskService executes outline operations against the task store.
type TaskService struct {
	tasks   *repositories.TaskRepository
	manager *outline.Manager
	gate    *gate.Gate
	hub     *realtime.Hub
	logger  *log.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks *repositories.TaskRepository, g *gate.Gate, hub *realtime.Hub, logger *log.Logger) *TaskService {
	return &TaskService{
		tasks:   tasks,
		manager: outline.NewManager(),
		gate:    g,
		hub:     hub,
		logger:  logger,
	}
}

// Add inserts a new empty task after anchorID, or at the chain head when
// anchorID is nil. Returns the inserted task with its assigned id.
func (s *TaskService) Add(ctx context.Context, projectID int64, anchorID *int64) (*models.Task, error) {
	inserted, _, _, err := s.execute(ctx, projectID, anchorID, s.manager.Insert)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task added", "project", projectID, "task", inserted.ID)
	s.hub.Publish(realtime.Event{
		Kind:      realtime.TaskAdded,
		ProjectID: projectID,
		Tasks:     []models.Task{*inserted},
	})
	return inserted, nil
}

// Rename replaces the task's text content. An empty value is rejected before
// a permit is requested, so malformed payloads never wait on admission.
func (s *TaskService) Rename(ctx context.Context, projectID, taskID int64, value string) (*models.Task, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: task value must not be empty", shared.ErrValidation)
	}

	_, n, _, err := s.execute(ctx, projectID, &taskID, func(n outline.Neighborhood) (*outline.EditSet, error) {
		return s.manager.Rename(n, value)
	})
	if err != nil {
		return nil, err
	}

	task := *n.Task
	task.Value = value
	s.hub.Publish(realtime.Event{
		Kind:      realtime.TaskRenamed,
		ProjectID: projectID,
		Tasks:     []models.Task{task},
	})
	return &task, nil
}

// Delete removes the task together with its descendant run and returns the
// ids of every removed task, in chain order.
func (s *TaskService) Delete(ctx context.Context, projectID, taskID int64) ([]int64, error) {
	_, _, edits, err := s.execute(ctx, projectID, &taskID, s.manager.Delete)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("tasks deleted", "project", projectID, "count", len(edits.Delete))
	s.hub.Publish(realtime.Event{
		Kind:       realtime.TasksDeleted,
		ProjectID:  projectID,
		DeletedIDs: edits.Delete,
	})
	return edits.Delete, nil
}

// Indent deepens the task's nesting by one level. An indent that would skip
// a level, or indent the chain head, is clamped: the call succeeds, nothing
// changes, and nothing is broadcast.
func (s *TaskService) Indent(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	return s.relevel(ctx, projectID, taskID, realtime.TaskIndented, s.manager.Indent)
}

// Outdent shallows the task's nesting by one level, floored at the root. Its
// descendant run shifts with it so no task ever sits more than one level
// below its predecessor.
func (s *TaskService) Outdent(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	return s.relevel(ctx, projectID, taskID, realtime.TaskOutdented, s.manager.Outdent)
}

func (s *TaskService) relevel(ctx context.Context, projectID, taskID int64, kind realtime.EventKind, compute func(outline.Neighborhood) (*outline.EditSet, error)) (*models.Task, error) {
	_, n, edits, err := s.execute(ctx, projectID, &taskID, compute)
	if err != nil {
		return nil, err
	}

	task := *n.Task
	if edits.Empty() {
		return &task, nil
	}

	levels := make(map[int64]int, len(edits.SetLevel))
	for _, edit := range edits.SetLevel {
		levels[edit.TaskID] = edit.Level
	}

	task.Level = levels[task.ID]
	updated := []models.Task{task}
	for _, d := range n.Descendants {
		if level, ok := levels[d.ID]; ok {
			d.Level = level
			updated = append(updated, d)
		}
	}

	s.hub.Publish(realtime.Event{
		Kind:      kind,
		ProjectID: projectID,
		Tasks:     updated,
	})
	return &task, nil
}

// Complete marks the task and its entire descendant run completed, returning
// every updated task.
func (s *TaskService) Complete(ctx context.Context, projectID, taskID int64) ([]models.Task, error) {
	_, n, _, err := s.execute(ctx, projectID, &taskID, s.manager.Complete)
	if err != nil {
		return nil, err
	}

	updated := make([]models.Task, 0, len(n.Descendants)+1)
	task := *n.Task
	task.Completed = true
	updated = append(updated, task)
	for _, d := range n.Descendants {
		d.Completed = true
		updated = append(updated, d)
	}

	s.hub.Publish(realtime.Event{
		Kind:      realtime.TasksCompleted,
		ProjectID: projectID,
		Tasks:     updated,
	})
	return updated, nil
}

// Uncomplete reopens the task. Its descendants keep their completion state.
func (s *TaskService) Uncomplete(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	_, n, _, err := s.execute(ctx, projectID, &taskID, s.manager.Uncomplete)
	if err != nil {
		return nil, err
	}

	task := *n.Task
	task.Completed = false
	s.hub.Publish(realtime.Event{
		Kind:      realtime.TaskUncompleted,
		ProjectID: projectID,
		Tasks:     []models.Task{task},
	})
	return &task, nil
}

// Outline returns the project's full validated chain. Reads bypass the
// admission gate; only mutations consume permits.
func (s *TaskService) Outline(ctx context.Context, projectID int64) (*outline.Chain, error) {
	return s.tasks.Snapshot(ctx, projectID)
}

// execute runs one mutation end to end: admission, snapshot, edit
// computation, guarded apply, commit. An empty edit set rolls back without
// touching storage and still counts as success.
func (s *TaskService) execute(ctx context.Context, projectID int64, taskID *int64, compute func(outline.Neighborhood) (*outline.EditSet, error)) (*models.Task, *outline.Neighborhood, *outline.EditSet, error) {
	if err := s.gate.Acquire(ctx); err != nil {
		return nil, nil, nil, err
	}
	defer s.gate.Release()

	tx, err := s.tasks.Begin(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	inserted, n, edits, err := s.executeTx(ctx, tx, projectID, taskID, compute)
	if err != nil {
		_ = tx.Rollback()
		return nil, nil, nil, err
	}

	if edits.Empty() {
		_ = tx.Rollback()
		return inserted, n, edits, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: commit failed: %v", shared.ErrStorage, err)
	}
	return inserted, n, edits, nil
}

func (s *TaskService) executeTx(ctx context.Context, tx *sql.Tx, projectID int64, taskID *int64, compute func(outline.Neighborhood) (*outline.EditSet, error)) (*models.Task, *outline.Neighborhood, *outline.EditSet, error) {
	n, err := s.tasks.LoadNeighborhood(ctx, tx, projectID, taskID)
	if err != nil {
		return nil, nil, nil, err
	}

	edits, err := compute(*n)
	if err != nil {
		return nil, nil, nil, err
	}
	if edits.Empty() {
		return nil, n, edits, nil
	}

	inserted, err := s.tasks.Apply(ctx, tx, edits)
	if err != nil {
		return nil, nil, nil, err
	}
	return inserted, n, edits, nil
}
