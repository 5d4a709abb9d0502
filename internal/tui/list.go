package tui

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// linesPerItem is the number of terminal lines each annotation occupies.
const linesPerItem = 2

// renderList renders the left panel: the filtered annotations with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.visible) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No annotations")
	}

	var lines []string
	for i, idx := range m.visible {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatAnnotationLine(m.annotations[idx], width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatAnnotationLine formats one annotation as two lines:
//
//	line 1: [>] kind  p.N  text
//	line 2:    comment (dimmed)
func formatAnnotationLine(a snapshot.Annotation, width int, selected bool) []string {
	var kind string
	if a.Kind == snapshot.KindHighlight {
		kind = styleKindHighlight.Render(string(a.Kind))
	} else {
		kind = styleKindOther.Render(string(a.Kind))
	}

	page := fmt.Sprintf("p.%-4d", a.Page)
	if a.Page == 0 {
		page = "p.?   "
	}

	text := oneLine(deref(a.Text))
	if text == "" {
		text = "(no text)"
	}
	// prefix + kind + page + padding
	textMax := width - 2 - 9 - 6 - 2
	text = truncate(text, textMax)

	line1 := fmt.Sprintf("%s %s %s", kind, page, text)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	comment := truncate(oneLine(deref(a.Comment)), width-4)
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(comment)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\t", " ")
}

func truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if runewidth.StringWidth(s) > max {
		return runewidth.Truncate(s, max, "…")
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
