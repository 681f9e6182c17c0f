package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewStylesheet("#1DB954", "#FFFFFF", "#FF0000", "#626262")

// Stylesheet is a simple set of named [lipgloss.Style] values for the
// now-playing view.
type Stylesheet struct {
	title lipgloss.Style
	track lipgloss.Style
	err   lipgloss.Style
	help  lipgloss.Style
}

func NewStylesheet(t, tr, e, h string) *Stylesheet {
	return &Stylesheet{
		title: NewBold(t).MarginBottom(1),
		track: NewBold(tr),
		err:   NewBold(e),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Swatch renders a block of terminal cells in the given background color.
func Swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("   ")
}
