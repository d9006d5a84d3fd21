package outline

import (
	"fmt"

	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/shared"
)

// Chain is a validated, fully materialized snapshot of one project's task
// ordering. It holds copies of the task rows; mutating a Chain never touches
// storage.
type Chain struct {
	project models.Project
	byID    map[int64]models.Task
	order   []int64
}

// BuildChain walks FirstTask → Next over the given task rows and validates
// the ordering invariant: every task of the project is visited exactly once,
// the walk terminates, and no task's level exceeds its predecessor's level
// plus one. The head task must sit at level 0.
func BuildChain(project models.Project, tasks []models.Task) (*Chain, error) {
	byID := make(map[int64]models.Task, len(tasks))
	for _, t := range tasks {
		if t.ProjectID != project.ID {
			return nil, fmt.Errorf("%w: task %d belongs to project %d, not %d",
				shared.ErrValidation, t.ID, t.ProjectID, project.ID)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate task id %d", shared.ErrValidation, t.ID)
		}
		byID[t.ID] = t
	}

	var order []int64
	seen := make(map[int64]bool, len(tasks))
	prevLevel := -1

	cursor := project.FirstTask
	for cursor != nil {
		id := *cursor
		if seen[id] {
			return nil, fmt.Errorf("%w: cycle at task %d", shared.ErrValidation, id)
		}
		task, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: chain references missing task %d", shared.ErrValidation, id)
		}

		if prevLevel < 0 && task.Level != 0 {
			return nil, fmt.Errorf("%w: head task %d has level %d", shared.ErrValidation, id, task.Level)
		}
		if task.Level < 0 || task.Level > prevLevel+1 {
			return nil, fmt.Errorf("%w: task %d jumps to level %d after level %d",
				shared.ErrValidation, id, task.Level, prevLevel)
		}

		seen[id] = true
		order = append(order, id)
		prevLevel = task.Level
		cursor = task.Next
	}

	if len(order) != len(tasks) {
		return nil, fmt.Errorf("%w: %d tasks orphaned from the chain",
			shared.ErrValidation, len(tasks)-len(order))
	}

	return &Chain{project: project, byID: byID, order: order}, nil
}

// Len returns the number of tasks in the chain.
func (c *Chain) Len() int { return len(c.order) }

// Tasks returns the tasks in chain order.
func (c *Chain) Tasks() []models.Task {
	out := make([]models.Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Task returns the task with the given id.
func (c *Chain) Task(id int64) (models.Task, error) {
	t, ok := c.byID[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: task %d in project %d", shared.ErrNotFound, id, c.project.ID)
	}
	return t, nil
}

// Predecessor returns the task pointing at id, or nil when id is the head.
func (c *Chain) Predecessor(id int64) (*models.Task, error) {
	if _, ok := c.byID[id]; !ok {
		return nil, fmt.Errorf("%w: task %d in project %d", shared.ErrNotFound, id, c.project.ID)
	}
	for i, oid := range c.order {
		if oid == id {
			if i == 0 {
				return nil, nil
			}
			prev := c.byID[c.order[i-1]]
			return &prev, nil
		}
	}
	return nil, fmt.Errorf("%w: task %d in project %d", shared.ErrNotFound, id, c.project.ID)
}

// DescendantRun returns the maximal contiguous run of successors whose level
// is strictly greater than the given task's level.
func (c *Chain) DescendantRun(id int64) ([]models.Task, error) {
	task, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %d in project %d", shared.ErrNotFound, id, c.project.ID)
	}

	var run []models.Task
	cursor := task.Next
	for cursor != nil {
		next := c.byID[*cursor]
		if next.Level <= task.Level {
			break
		}
		run = append(run, next)
		cursor = next.Next
	}
	return run, nil
}

// Neighborhood extracts the minimal region an operation on id needs from the
// full snapshot. Used by tests and the verify path; the service loads
// neighborhoods directly from storage.
func (c *Chain) Neighborhood(id int64) (Neighborhood, error) {
	task, err := c.Task(id)
	if err != nil {
		return Neighborhood{}, err
	}
	pred, err := c.Predecessor(id)
	if err != nil {
		return Neighborhood{}, err
	}
	run, err := c.DescendantRun(id)
	if err != nil {
		return Neighborhood{}, err
	}
	return Neighborhood{
		Project:     c.project,
		Task:        &task,
		Predecessor: pred,
		Descendants: run,
	}, nil
}
