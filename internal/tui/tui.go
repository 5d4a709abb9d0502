// Package tui holds the terminal front ends: the export progress view, the
// annotation browser and the styled report lines used by doctor and inspect.
package tui

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// copyFunc writes to the system clipboard. Tests replace it.
var copyFunc = clipboard.WriteAll

type copiedMsg struct {
	key string
	err error
}

type model struct {
	source      snapshot.Source
	annotations []snapshot.Annotation
	visible     []int // indexes into annotations matching the filter
	query       string
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string
	status      string
	width       int
	height      int
	ready       bool
	quitting    bool
}

func newModel(exp *snapshot.Export) model {
	ti := textinput.New()
	ti.Placeholder = "Filter annotations..."
	ti.Focus()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	m := model{
		source:      exp.Data.Source,
		annotations: exp.Data.Annotations,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
	m.applyFilter("")
	return m
}

// Browse shows the annotations of an export snapshot in a two-panel view
// and blocks until the user quits.
func Browse(exp *snapshot.Export) error {
	p := tea.NewProgram(newModel(exp), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// matches reports whether a contains every word of query, looking at
// text, comment, tags and kind, ignoring case.
func matches(a snapshot.Annotation, query string) bool {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return true
	}

	var hay strings.Builder
	hay.WriteString(strings.ToLower(deref(a.Text)))
	hay.WriteString(" ")
	hay.WriteString(strings.ToLower(deref(a.Comment)))
	hay.WriteString(" ")
	hay.WriteString(strings.ToLower(string(a.Kind)))
	for _, t := range a.Tags {
		hay.WriteString(" #")
		hay.WriteString(strings.ToLower(t.Name))
	}
	h := hay.String()

	for _, w := range words {
		if !strings.Contains(h, w) {
			return false
		}
	}
	return true
}

func (m *model) applyFilter(query string) {
	m.query = query
	m.visible = make([]int, 0, len(m.annotations))
	for i, a := range m.annotations {
		if matches(a, query) {
			m.visible = append(m.visible, i)
		}
	}
	m.cursor = 0
	m.listOffset = 0
	m.refreshPreview()
}

func (m *model) current() (snapshot.Annotation, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return snapshot.Annotation{}, false
	}
	return m.annotations[m.visible[m.cursor]], true
}

func (m *model) refreshPreview() {
	a, ok := m.current()
	if !ok {
		m.preview.SetContent("")
		m.previewKey = ""
		return
	}
	if a.Key == m.previewKey {
		return
	}
	m.preview.SetContent(renderAnnotation(m.source, a, m.previewWidth()))
	m.preview.GotoTop()
	m.previewKey = a.Key
}

func copyCmd(a snapshot.Annotation) tea.Cmd {
	text := deref(a.Text)
	if text == "" {
		text = deref(a.Comment)
	}
	return func() tea.Msg {
		return copiedMsg{key: a.Key, err: copyFunc(text)}
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		m.refreshPreview()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, browseKeys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, browseKeys.Copy):
			if a, ok := m.current(); ok {
				return m, copyCmd(a)
			}
			return m, nil

		case key.Matches(msg, browseKeys.Clear):
			m.filterInput.SetValue("")
			m.applyFilter("")
			return m, nil

		case key.Matches(msg, browseKeys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				m.refreshPreview()
			}
			return m, nil

		case key.Matches(msg, browseKeys.Down):
			if m.cursor < len(m.visible)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				m.refreshPreview()
			}
			return m, nil

		case key.Matches(msg, browseKeys.ScrollUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, browseKeys.ScrollDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil
		}

		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		if q := m.filterInput.Value(); q != m.query {
			m.applyFilter(q)
		}
		return m, cmd

	case tea.MouseMsg:
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			var cmd tea.Cmd
			m.preview, cmd = m.preview.Update(msg)
			return m, cmd
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "copied " + msg.key
		}
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	return lipgloss.JoinVertical(lipgloss.Left, m.filterInput.View(), panels, m.statusBar())
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	// 40% for list, minus border padding
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// input row + status bar + borders
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (m model) statusBar() string {
	parts := []string{fmt.Sprintf("%d/%d annotations", len(m.visible), len(m.annotations))}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, helpLine(browseKeys.Up, browseKeys.Down, browseKeys.ScrollDn, browseKeys.Copy, browseKeys.Quit))
	return styleStatusBar.Render(strings.Join(parts, " | "))
}
