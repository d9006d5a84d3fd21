package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/calebmds/taskchain/internal/shared"
)

// Task is one entry of a project's outline.
//
// Next holds the id of the task's successor within the same project, nil at
// the chain tail. Level encodes hierarchy: a task's children are the
// contiguous successors with a strictly greater level.
type Task struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Value     string `json:"value"`
	Level     int    `json:"level"`
	Completed bool   `json:"completed"`
	Next      *int64 `json:"next,omitempty"`
}

// Validate checks the task's field constraints.
func (t Task) Validate() error {
	if t.ProjectID <= 0 {
		return fmt.Errorf("%w: task requires a project", shared.ErrValidation)
	}
	if t.Level < 0 {
		return fmt.Errorf("%w: level must be non-negative", shared.ErrValidation)
	}
	if t.Next != nil && *t.Next == t.ID {
		return fmt.Errorf("%w: task cannot link to itself", shared.ErrValidation)
	}
	return nil
}

// Project owns an ordered chain of tasks. FirstTask references the chain
// head, nil for an empty outline.
type Project struct {
	ID        int64  `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	FirstTask *int64 `json:"first_task,omitempty"`
}

// Validate checks the project's field constraints.
func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(p.OwnerID) == "" {
		return fmt.Errorf("%w: project owner is required", shared.ErrValidation)
	}
	return nil
}

// AccessChecker is the project-access collaborator consulted by the access
// filter. Implementations must be safe for concurrent use.
type AccessChecker interface {
	// HasAccess reports whether userID is the owner of or a collaborator
	// on the project.
	HasAccess(ctx context.Context, projectID int64, userID string) (bool, error)
	// IsOwner reports whether userID owns the project.
	IsOwner(ctx context.Context, projectID int64, userID string) (bool, error)
}
