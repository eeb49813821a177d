package tui

import (
	"context"
	"log/slog"

	"gistfinder/internal/outline"
	"gistfinder/internal/search"
	"gistfinder/internal/syncer"

	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewBrowse
	ViewSyncing
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

// Config holds configuration passed from the CLI layer.
type Config struct {
	DBPath string
	// Query pre-fills the search bar.
	Query string
	// Sync is the base configuration for a sync started from the browser.
	// DBPath and OnProgress are filled in by the browser.
	Sync     syncer.Config
	Outliner *outline.Outliner
	Logger   *slog.Logger

	// program is set internally so background goroutines can send messages.
	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	loading  loadingModel
	browse   browseModel
	syncing  syncingModel
	selected *search.Record
	err      error
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	return Model{
		state:   ViewLoading,
		config:  cfg,
		loading: newLoadingModel(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loading.spinner.Tick, loadRecords(m.config))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewBrowse {
			var c tea.Cmd
			m.browse, c = m.browse.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.syncing.cancel()
			return m, tea.Quit
		case "q":
			if m.state != ViewBrowse {
				m.syncing.cancel()
				return m, tea.Quit
			}
		case "ctrl+s":
			if m.state == ViewBrowse {
				return m, m.startSync()
			}
		}

	case selectMsg:
		rec := msg.record
		m.selected = &rec
		return m, tea.Quit
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewLoading:
		m.loading, cmd = m.loading.Update(msg)
		if loaded, ok := msg.(recordsLoadedMsg); ok {
			if loaded.err != nil {
				m.err = loaded.err
				return m, nil
			}
			query := m.config.Query
			if m.browse.initialized {
				query = m.browse.input.Value()
			}
			m.browse = newBrowseModel(loaded.engine, loaded.lastSync, query)
			m.browse.initViewport(m.width, m.height)
			m.state = ViewBrowse
		}
		return m, cmd

	case ViewSyncing:
		m.syncing, cmd = m.syncing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.syncing.done {
			m.state = ViewLoading
			m.loading = newLoadingModel()
			return m, tea.Batch(m.loading.spinner.Tick, loadRecords(m.config))
		}

	case ViewBrowse:
		m.browse, cmd = m.browse.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) startSync() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.syncing = newSyncingModel(cancel)
	m.state = ViewSyncing
	return tea.Batch(m.syncing.spinner.Tick, runSync(ctx, m.config))
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n" +
			dimStyle.Render("Press q to quit.") + "\n"
	}

	switch m.state {
	case ViewLoading:
		return m.loading.View(m.width, m.height)
	case ViewBrowse:
		return m.browse.View(m.width, m.height)
	case ViewSyncing:
		return m.syncing.View(m.width, m.height)
	}
	return ""
}

// Run starts the browser. It returns the record chosen with Enter, or nil if
// the user quit without choosing.
func Run(cfg Config) (*search.Record, error) {
	ref := &programRef{}
	cfg.program = ref
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(Model)
	if !ok {
		return nil, nil
	}
	return m.selected, m.err
}
