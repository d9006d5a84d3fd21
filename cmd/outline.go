package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/calebmds/taskchain/internal/formatter"
	"github.com/calebmds/taskchain/internal/shared"
)

// OutlineShow prints the project's outline in chain order.
func (r *Runner) OutlineShow(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	return r.dispatch(ctx, e, cmd.String("user"), "outline/get", taskParams(cmd, nil))
}

// OutlineExport writes the outline to a file in the requested format.
func (r *Runner) OutlineExport(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	projectID := cmd.Int64("project")
	if err := r.requireAccess(ctx, e, projectID, cmd.String("user")); err != nil {
		return err
	}

	chain, err := e.tasks.Snapshot(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load outline: %w", err)
	}
	project, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}

	export := &formatter.OutlineExport{Project: *project, Tasks: chain.Tasks()}
	output := cmd.String("output")

	var written string
	switch format := cmd.String("format"); format {
	case "csv":
		written, err = formatter.WriteCSVExport(export, output)
	case "markdown", "md":
		written, err = formatter.WriteMarkdownExport(export, output)
	case "text", "txt":
		written, err = formatter.WriteTextExport(export, output)
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrValidation, format)
	}
	if err != nil {
		return err
	}

	r.logger.Info("outline exported", "project", projectID, "file", written)
	return r.writePlain("✓ Outline written to %s\n", written)
}

// OutlineVerify audits the project's chain invariants: single visit per
// task, level bounds, and pointer integrity.
func (r *Runner) OutlineVerify(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	projectID := cmd.Int64("project")
	if err := r.requireAccess(ctx, e, projectID, cmd.String("user")); err != nil {
		return err
	}

	chain, err := e.tasks.Snapshot(ctx, projectID)
	if err != nil {
		return fmt.Errorf("outline verification failed: %w", err)
	}

	return r.writePlain("✓ Project %d outline is consistent (%d tasks)\n", projectID, chain.Len())
}

func (r *Runner) requireAccess(ctx context.Context, e *engine, projectID int64, userID string) error {
	ok, err := e.projects.HasAccess(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: project %d", shared.ErrAccessDenied, projectID)
	}
	return nil
}
