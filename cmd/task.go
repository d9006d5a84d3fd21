package main

import (
	"context"
	"strconv"

	"github.com/urfave/cli/v3"
)

// taskParams builds the wire payload for a task operation. Project ids
// travel as decimal strings.
func taskParams(cmd *cli.Command, extra map[string]any) map[string]any {
	params := map[string]any{
		"project_id": strconv.FormatInt(cmd.Int64("project"), 10),
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

// TaskAdd inserts a new empty task after the anchor, or at the outline head.
func (r *Runner) TaskAdd(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	extra := map[string]any{}
	if cmd.IsSet("after") {
		extra["anchor_id"] = cmd.Int64("after")
	}

	return r.dispatch(ctx, e, cmd.String("user"), "task/add", taskParams(cmd, extra))
}

// TaskRename replaces a task's text.
func (r *Runner) TaskRename(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	return r.dispatch(ctx, e, cmd.String("user"), "task/rename", taskParams(cmd, map[string]any{
		"task_id": cmd.Int64("id"),
		"value":   cmd.String("value"),
	}))
}

// TaskDelete deletes a task and its subtasks.
func (r *Runner) TaskDelete(ctx context.Context, cmd *cli.Command) error {
	return r.taskOp(ctx, cmd, "task/delete")
}

// TaskIndent deepens a task's nesting by one level.
func (r *Runner) TaskIndent(ctx context.Context, cmd *cli.Command) error {
	return r.taskOp(ctx, cmd, "task/indent")
}

// TaskOutdent shallows a task's nesting by one level.
func (r *Runner) TaskOutdent(ctx context.Context, cmd *cli.Command) error {
	return r.taskOp(ctx, cmd, "task/outdent")
}

// TaskComplete marks a task and its subtasks completed.
func (r *Runner) TaskComplete(ctx context.Context, cmd *cli.Command) error {
	return r.taskOp(ctx, cmd, "task/complete")
}

// TaskUncomplete reopens a task.
func (r *Runner) TaskUncomplete(ctx context.Context, cmd *cli.Command) error {
	return r.taskOp(ctx, cmd, "task/uncomplete")
}

func (r *Runner) taskOp(ctx context.Context, cmd *cli.Command, op string) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	return r.dispatch(ctx, e, cmd.String("user"), op, taskParams(cmd, map[string]any{
		"task_id": cmd.Int64("id"),
	}))
}
