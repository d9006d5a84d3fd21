package outline

import (
	"fmt"
	"strings"

	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/shared"
)

// Neighborhood is the minimal chain region one operation needs, loaded
// inside the storage transaction.
//
// Task is nil only for a head insert (no anchor). Predecessor is nil when
// Task is the chain head. Descendants is the task's contiguous run of
// deeper-level successors, in chain order.
type Neighborhood struct {
	Project     models.Project
	Task        *models.Task
	Predecessor *models.Task
	Descendants []models.Task
}

// spliceTarget returns what the deleted task's predecessor should point at:
// the first successor at the task's level or shallower, nil at the tail.
func (n Neighborhood) spliceTarget() *int64 {
	if len(n.Descendants) > 0 {
		return n.Descendants[len(n.Descendants)-1].Next
	}
	return n.Task.Next
}

// Manager computes the structural edits for each outline operation. It is
// stateless and safe for concurrent use.
type Manager struct{}

// NewManager creates a new [Manager].
func NewManager() *Manager { return &Manager{} }

// Insert computes the edits for a new task spliced after the neighborhood's
// anchor task, or at the chain head when no anchor is given. The new task
// inherits the anchor's level; a head insert starts at level 0.
func (m *Manager) Insert(n Neighborhood) (*EditSet, error) {
	edits := &EditSet{ProjectID: n.Project.ID}

	if n.Task == nil {
		edits.Insert = &Insert{
			Task: models.Task{
				ProjectID: n.Project.ID,
				Level:     0,
				Next:      n.Project.FirstTask,
			},
		}
		return edits, nil
	}

	anchorID := n.Task.ID
	edits.Insert = &Insert{
		Task: models.Task{
			ProjectID: n.Project.ID,
			Level:     n.Task.Level,
			Next:      n.Task.Next,
		},
		PredecessorID: &anchorID,
	}
	return edits, nil
}

// Rename computes the edit replacing the task's value. The value must be
// non-empty.
func (m *Manager) Rename(n Neighborhood, value string) (*EditSet, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: task value must not be empty", shared.ErrValidation)
	}
	return &EditSet{
		ProjectID: n.Project.ID,
		SetValue:  &ValueEdit{TaskID: n.Task.ID, Value: value},
	}, nil
}

// Delete computes the edits removing the task together with its descendant
// run, re-splicing the predecessor (or the project head) to the first
// remaining successor at the task's level or shallower.
func (m *Manager) Delete(n Neighborhood) (*EditSet, error) {
	edits := &EditSet{ProjectID: n.Project.ID}

	edits.Delete = append(edits.Delete, n.Task.ID)
	for _, d := range n.Descendants {
		edits.Delete = append(edits.Delete, d.ID)
	}

	target := n.spliceTarget()
	if n.Predecessor == nil {
		edits.SetHead = &HeadEdit{From: n.Project.FirstTask, To: target}
	} else {
		edits.SetNext = append(edits.SetNext, PointerEdit{
			TaskID: n.Predecessor.ID,
			From:   n.Predecessor.Next,
			To:     target,
		})
	}
	return edits, nil
}

// Indent computes the edit incrementing the task's level. Indenting the
// chain head, or indenting past the predecessor's level plus one, is a
// clamped no-op: the returned edit set is empty and the operation still
// succeeds.
func (m *Manager) Indent(n Neighborhood) (*EditSet, error) {
	edits := &EditSet{ProjectID: n.Project.ID}

	if n.Predecessor == nil {
		return edits, nil
	}
	newLevel := n.Task.Level + 1
	if newLevel > n.Predecessor.Level+1 {
		return edits, nil
	}

	edits.SetLevel = append(edits.SetLevel, LevelEdit{TaskID: n.Task.ID, Level: newLevel})
	return edits, nil
}

// Outdent computes the edits decrementing the task's level, floored at 0.
// The descendant run shifts one level shallower with it, preserving relative
// nesting and keeping every step between successive tasks within one level.
func (m *Manager) Outdent(n Neighborhood) (*EditSet, error) {
	edits := &EditSet{ProjectID: n.Project.ID}

	if n.Task.Level == 0 {
		return edits, nil
	}

	edits.SetLevel = append(edits.SetLevel, LevelEdit{TaskID: n.Task.ID, Level: n.Task.Level - 1})
	for _, d := range n.Descendants {
		edits.SetLevel = append(edits.SetLevel, LevelEdit{TaskID: d.ID, Level: d.Level - 1})
	}
	return edits, nil
}

// Complete computes the edits marking the task and its entire descendant run
// completed. Completing a parent implies every subtask is done.
func (m *Manager) Complete(n Neighborhood) (*EditSet, error) {
	edits := &EditSet{ProjectID: n.Project.ID}

	edits.SetCompleted = append(edits.SetCompleted, CompletionEdit{TaskID: n.Task.ID, Completed: true})
	for _, d := range n.Descendants {
		edits.SetCompleted = append(edits.SetCompleted, CompletionEdit{TaskID: d.ID, Completed: true})
	}
	return edits, nil
}

// Uncomplete computes the edit reopening the task. Descendants keep their
// completion state: reopening a parent does not imply its subtasks are
// undone.
func (m *Manager) Uncomplete(n Neighborhood) (*EditSet, error) {
	return &EditSet{
		ProjectID:    n.Project.ID,
		SetCompleted: []CompletionEdit{{TaskID: n.Task.ID, Completed: false}},
	}, nil
}
