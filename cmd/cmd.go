// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func projectFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.Int64Flag{
			Name:     "project",
			Aliases:  []string{"p"},
			Usage:    "Project ID",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "user",
			Aliases:  []string{"u"},
			Usage:    "Acting user ID",
			Required: true,
		},
	}
	return append(flags, extra...)
}

// setupCommand handles database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// projectCommand handles project and collaborator operations
func projectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"proj"},
		Usage:   "Project operations",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new project",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "owner",
						Usage:    "Owning user ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Project name",
						Required: true,
					},
				},
				Action: r.ProjectCreate,
			},
			{
				Name:  "list",
				Usage: "List projects a user owns or collaborates on",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User ID",
						Required: true,
					},
				},
				Action: r.ProjectList,
			},
			{
				Name:   "delete",
				Usage:  "Delete a project and its entire outline",
				Flags:  projectFlags(),
				Action: r.ProjectDelete,
			},
			{
				Name:  "share",
				Usage: "Grant a user access to a project",
				Flags: projectFlags(&cli.StringFlag{
					Name:     "with",
					Usage:    "User ID to grant access to",
					Required: true,
				}),
				Action: r.ProjectShare,
			},
			{
				Name:  "unshare",
				Usage: "Revoke a user's access to a project",
				Flags: projectFlags(&cli.StringFlag{
					Name:     "with",
					Usage:    "User ID to revoke access from",
					Required: true,
				}),
				Action: r.ProjectUnshare,
			},
		},
	}
}

// taskCommand handles outline mutations, dispatched through the full
// middleware stack under the acting user's identity.
func taskCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "task",
		Usage: "Outline task operations",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Insert a new task after an anchor, or at the outline head",
				Flags: projectFlags(&cli.Int64Flag{
					Name:  "after",
					Usage: "Anchor task ID (omit to insert at the head)",
				}),
				Action: r.TaskAdd,
			},
			{
				Name:  "rename",
				Usage: "Replace a task's text",
				Flags: projectFlags(
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "Task ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "value",
						Usage:    "New task text",
						Required: true,
					},
				),
				Action: r.TaskRename,
			},
			{
				Name:   "delete",
				Usage:  "Delete a task and its subtasks",
				Flags:  taskTargetFlags(),
				Action: r.TaskDelete,
			},
			{
				Name:   "indent",
				Usage:  "Deepen a task's nesting by one level",
				Flags:  taskTargetFlags(),
				Action: r.TaskIndent,
			},
			{
				Name:   "outdent",
				Usage:  "Shallow a task's nesting by one level",
				Flags:  taskTargetFlags(),
				Action: r.TaskOutdent,
			},
			{
				Name:   "complete",
				Usage:  "Mark a task and its subtasks completed",
				Flags:  taskTargetFlags(),
				Action: r.TaskComplete,
			},
			{
				Name:   "uncomplete",
				Usage:  "Reopen a task, leaving its subtasks untouched",
				Flags:  taskTargetFlags(),
				Action: r.TaskUncomplete,
			},
		},
	}
}

func taskTargetFlags() []cli.Flag {
	return projectFlags(&cli.Int64Flag{
		Name:     "id",
		Usage:    "Task ID",
		Required: true,
	})
}

// outlineCommand handles ordered reads, exports, and invariant audits.
func outlineCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "outline",
		Usage: "Outline reads and exports",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the project's outline in chain order",
				Flags:  projectFlags(),
				Action: r.OutlineShow,
			},
			{
				Name:  "export",
				Usage: "Export the outline to CSV, Markdown, or plain text",
				Flags: projectFlags(
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, or text",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				),
				Action: r.OutlineExport,
			},
			{
				Name:   "verify",
				Usage:  "Audit the project's chain invariants",
				Flags:  projectFlags(),
				Action: r.OutlineVerify,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive outline browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive outline browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "User ID to browse as",
				Required: true,
			},
		},
		Action: r.TUI,
	}
}
