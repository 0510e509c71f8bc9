package components

import (
	"fmt"

	"github.com/allbin/go-vserial/internal/tui/colors"
	"github.com/allbin/go-vserial/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

type StatusBar struct {
	socketPath string
	status     string
	err        error
	state      styles.StatusType
	devices    int
	waiting    int
	width      int
}

func NewStatusBar(socketPath string) *StatusBar {
	return &StatusBar{
		socketPath: socketPath,
		status:     "Connecting...",
		state:      styles.StatusConnecting,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

// SetStatus shows a message, in the error style when err is set.
func (sb *StatusBar) SetStatus(status string, err error) {
	sb.status = status
	sb.err = err
}

func (sb *StatusBar) SetConnected(devices, waiting int) {
	sb.state = styles.StatusConnected
	sb.devices = devices
	sb.waiting = waiting
}

func (sb *StatusBar) SetDisconnected(err error) {
	sb.state = styles.StatusDisconnected
	sb.status = fmt.Sprintf("Adapter unreachable: %v", err)
	sb.err = err
}

func (sb *StatusBar) Connected() bool {
	return sb.state == styles.StatusConnected
}

// View renders the bar: mode, socket, indicator, message on the left and
// device summary plus timestamp on the right.
func (sb *StatusBar) View(commandMode bool, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)
	modeText := "NORMAL"
	if commandMode {
		modeStyle = modeStyle.Background(colors.Peach)
		modeText = "COMMAND"
	}
	mode := modeStyle.Render(modeText)

	socket := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.socketPath)

	indicator := "●"
	if sb.state != styles.StatusConnected {
		indicator = "○"
	}
	connIndicator := styles.GetStatusStyle(sb.state).Render(indicator)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	var message string
	if sb.err != nil {
		message = styles.ErrorStyle.Padding(0, 1).Render(sb.status)
	} else if sb.status != "" {
		message = styles.InfoStyle.Padding(0, 1).Render(sb.status)
	}

	summary := "no adapter"
	if sb.state == styles.StatusConnected {
		summary = fmt.Sprintf("%d devices, %d waiting", sb.devices, sb.waiting)
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(summary)

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, socket, connIndicator, divider, message)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
