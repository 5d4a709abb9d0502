package tui

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// renderAnnotation renders the right panel for one annotation of src.
func renderAnnotation(src snapshot.Source, a snapshot.Annotation, width int) string {
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	b.WriteString(styleTitle.Render(src.Title))
	b.WriteString("\n")
	b.WriteString(styleLabel.Render(fmt.Sprintf("%s · %s", src.Key, a.Key)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		styleLabel.Render("kind"), a.Kind,
		styleLabel.Render("page"), pageText(a.Page),
		styleLabel.Render("colour"), strings.TrimSpace(a.Colour+" "+swatch(a.Colour)))
	fmt.Fprintf(&b, "%s %s\n", styleLabel.Render("added"), a.DateAdded.Format("2006-01-02 15:04"))

	if len(a.Tags) > 0 {
		names := make([]string, 0, len(a.Tags))
		for _, t := range a.Tags {
			names = append(names, "#"+t.Name)
		}
		fmt.Fprintf(&b, "%s %s\n", styleLabel.Render("tags"), strings.Join(names, " "))
	}

	if a.Text != nil {
		b.WriteString("\n")
		b.WriteString(wrap.Render(*a.Text))
		b.WriteString("\n")
	}
	if a.Comment != nil {
		b.WriteString("\n")
		b.WriteString(styleLabel.Render("comment"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(*a.Comment))
		b.WriteString("\n")
	}
	return b.String()
}

func pageText(page int) string {
	if page == 0 {
		return "?"
	}
	return fmt.Sprint(page)
}

// newViewport creates the preview viewport. The panel border is drawn by
// View, not by the viewport itself.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}
