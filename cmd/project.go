package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/calebmds/taskchain/internal/shared"
)

// ProjectCreate creates a new project with an empty outline.
func (r *Runner) ProjectCreate(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	project, err := e.projects.Create(ctx, cmd.String("owner"), cmd.String("name"))
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	r.logger.Info("project created", "id", project.ID, "owner", project.OwnerID)
	return r.writeJSON(project, true)
}

// ProjectList lists every project the user owns or collaborates on.
func (r *Runner) ProjectList(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	projects, err := e.projects.List(ctx, cmd.String("user"))
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	return r.writeJSON(projects, true)
}

// ProjectDelete deletes a project and its entire outline. Owner only.
func (r *Runner) ProjectDelete(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	projectID := cmd.Int64("project")
	if err := r.requireOwner(ctx, e, projectID, cmd.String("user")); err != nil {
		return err
	}

	if err := e.projects.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	r.logger.Info("project deleted", "id", projectID)
	return r.writePlain("✓ Project %d deleted\n", projectID)
}

// ProjectShare grants a user collaborator access. Owner only.
func (r *Runner) ProjectShare(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	projectID := cmd.Int64("project")
	if err := r.requireOwner(ctx, e, projectID, cmd.String("user")); err != nil {
		return err
	}

	collaborator := cmd.String("with")
	if err := e.projects.AddCollaborator(ctx, projectID, collaborator); err != nil {
		return fmt.Errorf("failed to add collaborator: %w", err)
	}

	r.logger.Info("collaborator added", "project", projectID, "user", collaborator)
	return r.writePlain("✓ %s can now edit project %d\n", collaborator, projectID)
}

// ProjectUnshare revokes a user's collaborator access. Owner only.
func (r *Runner) ProjectUnshare(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	projectID := cmd.Int64("project")
	if err := r.requireOwner(ctx, e, projectID, cmd.String("user")); err != nil {
		return err
	}

	collaborator := cmd.String("with")
	if err := e.projects.RemoveCollaborator(ctx, projectID, collaborator); err != nil {
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}

	r.logger.Info("collaborator removed", "project", projectID, "user", collaborator)
	return r.writePlain("✓ %s can no longer edit project %d\n", collaborator, projectID)
}

func (r *Runner) requireOwner(ctx context.Context, e *engine, projectID int64, userID string) error {
	ok, err := e.projects.IsOwner(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: only the owner may manage project %d", shared.ErrAccessDenied, projectID)
	}
	return nil
}
