package tui

import (
	"context"
	"fmt"

	"gistfinder/internal/syncer"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type syncingModel struct {
	spinner  spinner.Model
	phase    string
	done     bool
	progress int
	total    int
	stats    *syncer.Stats
	err      error
	cancelFn context.CancelFunc
}

func newSyncingModel(cancel context.CancelFunc) syncingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return syncingModel{
		spinner:  sp,
		phase:    "Starting sync...",
		cancelFn: cancel,
	}
}

func (m syncingModel) cancel() {
	if m.cancelFn != nil {
		m.cancelFn()
	}
}

// syncDoneMsg is sent when the sync completes.
type syncDoneMsg struct {
	stats *syncer.Stats
	err   error
}

// syncProgressMsg is sent as the sync moves through its phases.
type syncProgressMsg struct {
	phase string
	done  int
	total int
}

func runSync(ctx context.Context, cfg Config) tea.Cmd {
	return func() tea.Msg {
		sc := cfg.Sync
		sc.DBPath = cfg.DBPath
		if sc.Logger == nil {
			sc.Logger = cfg.Logger
		}
		sc.OnProgress = func(phase string, done, total int) {
			if cfg.program != nil && cfg.program.p != nil {
				cfg.program.p.Send(syncProgressMsg{phase: phase, done: done, total: total})
			}
		}

		s, err := syncer.New(sc)
		if err != nil {
			return syncDoneMsg{err: err}
		}
		defer s.Close()

		stats, err := s.Sync(ctx)
		return syncDoneMsg{stats: stats, err: err}
	}
}

func (m syncingModel) Update(msg tea.Msg) (syncingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case syncDoneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		m.cancel()
		return m, nil
	case syncProgressMsg:
		m.phase = msg.phase
		m.progress = msg.done
		m.total = msg.total
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m syncingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Syncing") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter to go back to the cached gists, or q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Sync complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Files: %d listed, %d fetched, %d removed\n",
				m.stats.Files, m.stats.Fetched, m.stats.Deleted)
			if n := len(m.stats.Failures); n > 0 {
				s += warnStyle.Render(fmt.Sprintf("  ⚠ %d files could not be fetched", n)) + "\n"
			}
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to continue") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += fmt.Sprintf("  %d / %d\n", m.progress, m.total)
	}
	return s
}
