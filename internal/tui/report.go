package tui

import (
	"fmt"
	"io"
)

// Status is the outcome of one doctor check.
type Status int

const (
	StatusOK Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return styleOK.Render("OK")
	case StatusWarn:
		return styleWarn.Render("WARN")
	default:
		return styleFail.Render("FAIL")
	}
}

// Section prints a section heading.
func Section(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n", styleTitle.Render("=== "+title+" ==="))
}

// Check prints one labelled check result, with an optional detail.
func Check(w io.Writer, label, value string, st Status, detail string) {
	line := fmt.Sprintf("  %s %s (%s)", styleLabel.Render(label+":"), value, st)
	if detail != "" {
		line += " " + styleLabel.Render(detail)
	}
	fmt.Fprintln(w, line)
}

// Field prints a label/value pair.
func Field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %s %v\n", styleLabel.Render(label+":"), value)
}
