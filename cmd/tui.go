package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/prism/internal/shared"
	"github.com/desertthunder/prism/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive now-playing terminal view.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.reload(cmd.String("config")); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	defer r.close()

	userID := r.active.Get()
	if userID == "" {
		return fmt.Errorf("%w: run `prism auth` first", shared.ErrNotAuthenticated)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/prism-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	interval := time.Duration(r.config.Poll.IntervalSeconds) * time.Second
	model := ui.NewModel(ctx, r.engine, userID, interval)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
