package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calebmds/taskchain/internal/realtime"
	"github.com/calebmds/taskchain/internal/service"
	"github.com/calebmds/taskchain/internal/shared"
)

// Handlers binds the task service and the broadcast hub to dispatcher
// operations.
type Handlers struct {
	tasks *service.TaskService
	hub   *realtime.Hub
}

// NewHandlers creates a new [Handlers] instance.
func NewHandlers(tasks *service.TaskService, hub *realtime.Hub) *Handlers {
	return &Handlers{tasks: tasks, hub: hub}
}

// Register installs every operation on the dispatcher. Call after the
// middleware stack is in place.
func (h *Handlers) Register(d *Dispatcher) {
	d.Handle("task/add", h.TaskAdd)
	d.Handle("task/rename", h.TaskRename)
	d.Handle("task/delete", h.TaskDelete)
	d.Handle("task/indent", h.TaskIndent)
	d.Handle("task/outdent", h.TaskOutdent)
	d.Handle("task/complete", h.TaskComplete)
	d.Handle("task/uncomplete", h.TaskUncomplete)
	d.Handle("project/join", h.ProjectJoin)
	d.Handle("project/leave", h.ProjectLeave)
	d.Handle("outline/get", h.OutlineGet)
}

type addParams struct {
	ProjectID string `json:"project_id"`
	AnchorID  *int64 `json:"anchor_id,omitempty"`
}

type taskParams struct {
	ProjectID string `json:"project_id"`
	TaskID    int64  `json:"task_id"`
}

type renameParams struct {
	ProjectID string `json:"project_id"`
	TaskID    int64  `json:"task_id"`
	Value     string `json:"value"`
}

func decode[T any](params json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(params, &v); err != nil {
		return v, fmt.Errorf("%w: malformed parameters: %v", shared.ErrValidation, err)
	}
	return v, nil
}

// TaskAdd inserts a new empty task after the anchor, or at the head of the
// outline when no anchor is given.
func (h *Handlers) TaskAdd(ctx context.Context, req Request) (any, error) {
	params, err := decode[addParams](req.Params)
	if err != nil {
		return nil, err
	}
	projectID, err := parseProjectID(req.Params)
	if err != nil {
		return nil, err
	}

	task, err := h.tasks.Add(ctx, projectID, params.AnchorID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task}, nil
}

// TaskRename replaces a task's text content.
func (h *Handlers) TaskRename(ctx context.Context, req Request) (any, error) {
	params, err := decode[renameParams](req.Params)
	if err != nil {
		return nil, err
	}
	projectID, err := parseProjectID(req.Params)
	if err != nil {
		return nil, err
	}

	task, err := h.tasks.Rename(ctx, projectID, params.TaskID, params.Value)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task}, nil
}

// TaskDelete removes a task and its descendant run.
func (h *Handlers) TaskDelete(ctx context.Context, req Request) (any, error) {
	projectID, params, err := taskTarget(req)
	if err != nil {
		return nil, err
	}

	deleted, err := h.tasks.Delete(ctx, projectID, params.TaskID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"deleted_ids": deleted}, nil
}

// TaskIndent deepens a task's nesting by one level.
func (h *Handlers) TaskIndent(ctx context.Context, req Request) (any, error) {
	projectID, params, err := taskTarget(req)
	if err != nil {
		return nil, err
	}

	task, err := h.tasks.Indent(ctx, projectID, params.TaskID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task}, nil
}

// TaskOutdent shallows a task's nesting by one level.
func (h *Handlers) TaskOutdent(ctx context.Context, req Request) (any, error) {
	projectID, params, err := taskTarget(req)
	if err != nil {
		return nil, err
	}

	task, err := h.tasks.Outdent(ctx, projectID, params.TaskID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task}, nil
}

// TaskComplete marks a task and its descendant run completed.
func (h *Handlers) TaskComplete(ctx context.Context, req Request) (any, error) {
	projectID, params, err := taskTarget(req)
	if err != nil {
		return nil, err
	}

	tasks, err := h.tasks.Complete(ctx, projectID, params.TaskID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tasks": tasks}, nil
}

// TaskUncomplete reopens a task, leaving its descendants untouched.
func (h *Handlers) TaskUncomplete(ctx context.Context, req Request) (any, error) {
	projectID, params, err := taskTarget(req)
	if err != nil {
		return nil, err
	}

	task, err := h.tasks.Uncomplete(ctx, projectID, params.TaskID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task}, nil
}

// ProjectJoin subscribes the connection to the project's broadcast group and
// delivers the current outline to it so the client starts from a consistent
// snapshot.
//
// The connection joins the group before the snapshot loads. A mutation that
// commits while the snapshot is being read then reaches the joiner as a
// delta the snapshot already includes, instead of falling between the two.
func (h *Handlers) ProjectJoin(ctx context.Context, req Request) (any, error) {
	projectID, err := parseProjectID(req.Params)
	if err != nil {
		return nil, err
	}

	h.hub.Join(projectID, req.Conn)

	chain, err := h.tasks.Outline(ctx, projectID)
	if err != nil {
		h.hub.Leave(projectID, req.Conn.ID())
		return nil, err
	}

	if err := req.Conn.Send(realtime.Event{
		Kind:      realtime.OutlineJoined,
		ProjectID: projectID,
		Tasks:     chain.Tasks(),
	}); err != nil {
		h.hub.Leave(projectID, req.Conn.ID())
		return nil, fmt.Errorf("%w: snapshot delivery failed: %v", shared.ErrUnavailable, err)
	}

	return map[string]any{"subscribers": h.hub.Subscribers(projectID)}, nil
}

// ProjectLeave unsubscribes the connection from the project's broadcast
// group.
func (h *Handlers) ProjectLeave(ctx context.Context, req Request) (any, error) {
	projectID, err := parseProjectID(req.Params)
	if err != nil {
		return nil, err
	}

	h.hub.Leave(projectID, req.Conn.ID())
	return map[string]any{"subscribers": h.hub.Subscribers(projectID)}, nil
}

// OutlineGet returns the project's full outline in chain order.
func (h *Handlers) OutlineGet(ctx context.Context, req Request) (any, error) {
	projectID, err := parseProjectID(req.Params)
	if err != nil {
		return nil, err
	}

	chain, err := h.tasks.Outline(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tasks": chain.Tasks()}, nil
}

func taskTarget(req Request) (int64, taskParams, error) {
	params, err := decode[taskParams](req.Params)
	if err != nil {
		return 0, params, err
	}
	projectID, err := parseProjectID(req.Params)
	if err != nil {
		return 0, params, err
	}
	if params.TaskID <= 0 {
		return 0, params, fmt.Errorf("%w: invalid identifier", shared.ErrValidation)
	}
	return projectID, params, nil
}
