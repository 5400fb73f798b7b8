package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorRed    = lipgloss.Color("#fb4934")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
	ColorBg     = lipgloss.Color("#3c3836")
)

var (
	styleHeader  = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(ColorDim)
	styleFg      = lipgloss.NewStyle().Foreground(ColorFg)
	styleCursor  = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(ColorRed)
	styleFixed   = lipgloss.NewStyle().Foreground(ColorFg).Background(ColorBg)
	styleDragged = lipgloss.NewStyle().Bold(true).Underline(true)
)

// priorityColor is red for the first pick, yellow for the second and blue after that
func priorityColor(priority int) lipgloss.Color {
	switch priority {
	case 1:
		return ColorRed
	case 2:
		return ColorYellow
	default:
		return ColorBlue
	}
}

func blockStyle(priority int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#1d2021")).Background(priorityColor(priority))
}
