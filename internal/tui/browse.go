package tui

import (
	"fmt"
	"strings"
	"time"

	"gistfinder/internal/outline"
	"gistfinder/internal/search"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

type focus int

const (
	focusList focus = iota
	focusSearch
	focusPreview
)

type browseModel struct {
	engine   *search.Engine
	results  []search.Record
	filters  search.Filters
	queryErr error
	lastSync time.Time

	input    textinput.Model
	preview  viewport.Model
	renderer *glamour.TermRenderer
	rendered map[string]string

	focus       focus
	cursor      int
	offset      int
	width       int
	height      int
	listWidth   int
	bodyHeight  int
	initialized bool
}

// selectMsg is sent when the user picks a record with Enter.
type selectMsg struct {
	record search.Record
}

func newBrowseModel(engine *search.Engine, lastSync time.Time, query string) browseModel {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = `search, or \g glob \d desc \f file \c code \s symbol`
	ti.CharLimit = 500
	ti.SetValue(query)

	m := browseModel{
		engine:   engine,
		lastSync: lastSync,
		input:    ti,
		rendered: make(map[string]string),
		results:  engine.Records(),
	}
	m.applyQuery()
	return m
}

func (m *browseModel) initViewport(width, height int) {
	if width <= 0 || height <= 0 {
		width, height = 80, 24
	}
	m.width = width
	m.height = height

	// Layout: search bar (1 line) + body + status bar (1 line).
	m.bodyHeight = height - 2
	if m.bodyHeight < 3 {
		m.bodyHeight = 3
	}
	m.listWidth = width * 2 / 5
	if m.listWidth < 20 {
		m.listWidth = min(20, width)
	}
	previewWidth := width - m.listWidth - 1
	if previewWidth < 10 {
		previewWidth = 10
	}
	m.preview = viewport.New(previewWidth, m.bodyHeight)
	m.input.Width = width - 4

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(previewWidth-2),
	)
	if err == nil {
		m.renderer = r
	}
	m.rendered = make(map[string]string)

	m.initialized = true
	m.scrollToCursor()
	m.refreshPreview()
}

func (m *browseModel) applyQuery() {
	f := search.ParseQuery(m.input.Value())
	results, err := m.engine.Ranked(f)
	if err != nil {
		m.queryErr = err
		return
	}
	m.queryErr = nil
	m.filters = f
	m.results = results
	m.cursor = 0
	m.offset = 0
	m.refreshPreview()
}

// current returns the highlighted record.
func (m browseModel) current() (search.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return search.Record{}, false
	}
	return m.results[m.cursor], true
}

func (m *browseModel) move(delta int) {
	if len(m.results) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.results)-1, m.cursor+delta))
	m.scrollToCursor()
	m.refreshPreview()
}

func (m *browseModel) scrollToCursor() {
	if m.bodyHeight <= 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.bodyHeight {
		m.offset = m.cursor - m.bodyHeight + 1
	}
}

func (m *browseModel) refreshPreview() {
	if !m.initialized {
		return
	}
	rec, ok := m.current()
	if !ok {
		m.preview.SetContent(dimStyle.Render("No matching gists."))
		return
	}
	body, ok := m.rendered[rec.ID]
	if !ok {
		body = m.renderRecord(rec)
		m.rendered[rec.ID] = body
	}
	m.preview.SetContent(body)
	m.preview.GotoTop()
}

func (m browseModel) renderRecord(rec search.Record) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(rec.FileName) + "\n")
	if rec.Description != "" {
		sb.WriteString(subtitleStyle.Render(rec.Description) + "\n")
	}
	meta := []string{formatSize(rec.Size)}
	if rec.Language != "" {
		meta = append([]string{rec.Language}, meta...)
	}
	if !rec.UpdatedAt.IsZero() {
		meta = append(meta, "updated "+rec.UpdatedAt.Format("2006-01-02"))
	}
	sb.WriteString(dimStyle.Render(strings.Join(meta, " • ")) + "\n")
	if syms := m.engine.Symbols(rec); len(syms) > 0 {
		sb.WriteString(dimStyle.Render("symbols: "+symbolList(syms)) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderCode(rec))
	return sb.String()
}

func symbolList(syms []outline.Symbol) string {
	parts := make([]string, len(syms))
	for i, s := range syms {
		parts[i] = fmt.Sprintf("%s %s:%d", s.Kind, s.Name, s.Line)
	}
	return strings.Join(parts, ", ")
}

func (m browseModel) renderCode(rec search.Record) string {
	if m.renderer == nil {
		return codeStyle.Render(rec.Code)
	}
	lang := strings.ToLower(strings.ReplaceAll(rec.Language, " ", ""))
	md := "```" + lang + "\n" + strings.TrimRight(rec.Code, "\n") + "\n```\n"
	out, err := m.renderer.Render(md)
	if err != nil {
		return codeStyle.Render(rec.Code)
	}
	return strings.TrimRight(out, "\n")
}

func (m browseModel) selectCurrent() tea.Cmd {
	rec, ok := m.current()
	if !ok {
		return nil
	}
	return func() tea.Msg { return selectMsg{record: rec} }
}

func (m browseModel) Update(msg tea.Msg) (browseModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch m.focus {
		case focusSearch:
			return m.updateSearch(msg)
		case focusPreview:
			return m.updatePreview(msg)
		}
		return m.updateList(msg)
	}

	if m.focus == focusSearch {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m browseModel) updateSearch(msg tea.KeyMsg) (browseModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.focus = focusList
		m.input.Blur()
		return m, nil
	case "esc":
		m.input.Reset()
		m.input.Blur()
		m.focus = focusList
		m.applyQuery()
		return m, nil
	case "tab":
		m.focus = focusList
		m.input.Blur()
		return m, nil
	case "up":
		m.move(-1)
		return m, nil
	case "down":
		m.move(1)
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.applyQuery()
	}
	return m, cmd
}

func (m browseModel) updateList(msg tea.KeyMsg) (browseModel, tea.Cmd) {
	switch msg.String() {
	case "/":
		m.focus = focusSearch
		cmd := m.input.Focus()
		return m, cmd
	case "esc":
		if m.input.Value() != "" {
			m.input.Reset()
			m.applyQuery()
		}
	case "enter":
		return m, m.selectCurrent()
	case "tab":
		m.focus = focusPreview
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup":
		m.move(-m.bodyHeight)
	case "pgdown":
		m.move(m.bodyHeight)
	case "home", "g":
		m.move(-len(m.results))
	case "end", "G":
		m.move(len(m.results))
	}
	return m, nil
}

func (m browseModel) updatePreview(msg tea.KeyMsg) (browseModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "esc":
		m.focus = focusList
		return m, nil
	case "enter":
		return m, m.selectCurrent()
	case "q":
		return m, tea.Quit
	case "/":
		m.focus = focusSearch
		cmd := m.input.Focus()
		return m, cmd
	}
	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

// highlightPattern is the expression whose characters are marked in the file
// list: the file filter if set, else the text filter.
func (m browseModel) highlightPattern() string {
	p := m.filters.File
	if p == "" {
		p = m.filters.Text
	}
	return strings.ReplaceAll(p, " ", "")
}

func highlight(name, pattern string, base lipgloss.Style) string {
	if pattern == "" {
		return base.Render(name)
	}
	matches := fuzzy.Find(pattern, []string{name})
	if len(matches) == 0 {
		return base.Render(name)
	}
	hit := make(map[int]bool, len(matches[0].MatchedIndexes))
	for _, i := range matches[0].MatchedIndexes {
		hit[i] = true
	}
	var sb strings.Builder
	for i, r := range name {
		if hit[i] {
			sb.WriteString(matchStyle.Render(string(r)))
		} else {
			sb.WriteString(base.Render(string(r)))
		}
	}
	return sb.String()
}

func (m browseModel) renderList() string {
	pattern := m.highlightPattern()
	rowStyle := lipgloss.NewStyle().MaxWidth(m.listWidth)

	var rows []string
	end := min(len(m.results), m.offset+m.bodyHeight)
	for i := m.offset; i < end; i++ {
		rec := m.results[i]
		marker, base := "  ", listItemStyle
		if i == m.cursor {
			marker, base = "▸ ", selectedStyle
		}
		row := marker + highlight(rec.FileName, pattern, base)
		if rec.Description != "" {
			row += " " + dimStyle.Render(rec.Description)
		}
		rows = append(rows, rowStyle.Render(row))
	}
	if len(rows) == 0 {
		rows = append(rows, dimStyle.Render("  no matches"))
	}
	return lipgloss.NewStyle().
		Width(m.listWidth).
		Height(m.bodyHeight).
		Render(strings.Join(rows, "\n"))
}

func (m browseModel) statusLine() string {
	if m.queryErr != nil {
		return errorStyle.Render(" " + m.queryErr.Error())
	}
	pane := "list"
	switch m.focus {
	case focusSearch:
		pane = "search"
	case focusPreview:
		pane = "preview"
	}
	return fmt.Sprintf(" gistfinder • %d/%d files • synced %s • %s • / search  tab pane  enter select  ctrl+s sync  q quit",
		len(m.results), m.engine.Len(), formatAge(m.lastSync, time.Now()), pane)
}

func (m browseModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	divider := dividerStyle.Height(m.bodyHeight).Render(strings.Repeat("│\n", m.bodyHeight-1) + "│")
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(), divider, m.preview.View())

	statusBar := statusBarStyle.
		Width(m.width).
		MaxWidth(m.width).
		Render(m.statusLine())

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.input.View(),
		body,
		statusBar,
	)
}
