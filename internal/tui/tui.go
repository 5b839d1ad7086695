// Package tui is the interactive weekly calendar.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"scaffold-planner/internal/live"
	"scaffold-planner/internal/notify"
)

type Options struct {
	WeekStart time.Weekday
	Now       func() time.Time
	Logger    *zap.Logger

	// StatePath, when set, restores the last week and lane and saves them on exit.
	StatePath string
}

// Run shows the calendar for board until the user quits or ctx ends. Signals from n
// trigger the board's debounced refetch; n may be nil.
func Run(ctx context.Context, board *live.Board, n notify.Notifier, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()

	m, stop, err := newModel(ctx, board, n, opts)
	if err != nil {
		return err
	}
	defer stop()
	if opts.StatePath != "" {
		m.restore(LoadState(opts.StatePath))
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(appModel); ok && opts.StatePath != "" {
		if serr := SaveState(opts.StatePath, fm.state()); serr != nil {
			m.log.Warn("save tui state", zap.Error(serr))
		}
	}
	return err
}
