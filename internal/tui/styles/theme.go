package styles

import (
	"github.com/allbin/go-vserial/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Blue).
			PaddingLeft(1)

	// Modem line styles
	LineOnStyle = lipgloss.NewStyle().
			Foreground(colors.Asserted).
			Bold(true)

	LineOffStyle = lipgloss.NewStyle().
			Foreground(colors.Deasserted)

	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	DetailBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colors.Surface1).
				Padding(0, 1)

	// Input styles
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	// Message styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	InfoStyle = lipgloss.NewStyle().
			Foreground(colors.Teal)
)

type StatusType int

const (
	StatusConnected StatusType = iota
	StatusDisconnected
	StatusConnecting
)

func GetStatusStyle(status StatusType) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch status {
	case StatusConnected:
		return style.Foreground(colors.Green)
	case StatusConnecting:
		return style.Foreground(colors.Yellow)
	default:
		return style.Foreground(colors.Red)
	}
}

// Line renders a modem line name in its on or off style.
func Line(name string, on bool) string {
	if on {
		return LineOnStyle.Render(name)
	}
	return LineOffStyle.Render(name)
}
