package application

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#A8D8EA")
	colorMuted  = lipgloss.Color("#6c757d")
	colorGood   = lipgloss.Color("#4ECDC4")
	colorAlert  = lipgloss.Color("#FF6B6B")
)

var (
	styleTitle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorMuted).
			Padding(0, 1)

	styleItem     = lipgloss.NewStyle().PaddingLeft(2)
	styleSelected = lipgloss.NewStyle().PaddingLeft(1).Foreground(colorAccent).Bold(true)
	styleHelp     = lipgloss.NewStyle().Foreground(colorMuted)
	styleStatus   = lipgloss.NewStyle().Foreground(colorGood)
	styleError    = lipgloss.NewStyle().Foreground(colorAlert).Bold(true)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}
