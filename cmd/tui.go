package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/calebmds/taskchain/internal/shared"
	"github.com/calebmds/taskchain/internal/ui"
)

// TUI launches the interactive outline browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	e, err := r.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/taskchain-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, cmd.String("user"), e.projects, e.service)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
