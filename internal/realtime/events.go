package realtime

import "github.com/calebmds/taskchain/internal/models"

// EventKind names a broadcast payload.
type EventKind string

const (
	TaskAdded       EventKind = "task_added"
	TaskRenamed     EventKind = "task_renamed"
	TasksDeleted    EventKind = "tasks_deleted"
	TasksCompleted  EventKind = "tasks_completed"
	TaskUncompleted EventKind = "task_uncompleted"
	TaskIndented    EventKind = "task_indented"
	TaskOutdented   EventKind = "task_outdented"
	OutlineJoined   EventKind = "outline_joined"
)

// Event is the delta published to a project's subscriber group after a
// mutation commits. Tasks carries the new or updated rows; DeletedIDs lists
// removed tasks for cascading deletes. Only one of the two is populated for
// a given kind.
type Event struct {
	Kind       EventKind     `json:"kind"`
	ProjectID  int64         `json:"project_id"`
	Tasks      []models.Task `json:"tasks,omitempty"`
	DeletedIDs []int64       `json:"deleted_ids,omitempty"`
}
