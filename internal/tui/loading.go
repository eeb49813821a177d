package tui

import (
	"fmt"
	"time"

	"gistfinder/internal/search"
	"gistfinder/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type loadingModel struct {
	spinner spinner.Model
}

func newLoadingModel() loadingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return loadingModel{spinner: sp}
}

// recordsLoadedMsg is sent once the cache has been read into memory.
type recordsLoadedMsg struct {
	engine   *search.Engine
	lastSync time.Time
	err      error
}

func loadRecords(cfg Config) tea.Cmd {
	return func() tea.Msg {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return recordsLoadedMsg{err: err}
		}
		defer st.Close()

		lastSync, err := st.LastSync()
		if err != nil {
			return recordsLoadedMsg{err: err}
		}

		records, err := search.Load(st)
		if err != nil {
			return recordsLoadedMsg{err: err}
		}
		if cfg.Logger != nil {
			cfg.Logger.Debug("records loaded", "count", len(records))
		}

		var opts []search.Option
		if cfg.Outliner != nil {
			opts = append(opts, search.WithOutliner(cfg.Outliner))
		}
		return recordsLoadedMsg{
			engine:   search.NewEngine(records, opts...),
			lastSync: lastSync,
		}
	}
}

func (m loadingModel) Update(msg tea.Msg) (loadingModel, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}
	return m, nil
}

func (m loadingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ gistfinder") + "\n"
	s += subtitleStyle.Render("  Fuzzy search for your GitHub gists") + "\n\n"
	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), dimStyle.Render("Loading gists..."))
	return s
}
