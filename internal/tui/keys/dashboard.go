package keys

import "github.com/charmbracelet/bubbles/key"

// DashboardKeys are the bindings of the device dashboard
type DashboardKeys struct {
	CommonKeys
	Enter       key.Binding
	Up          key.Binding
	Down        key.Binding
	Refresh     key.Binding
	ToggleRTS   key.Binding
	ToggleDTR   key.Binding
	Hangup      key.Binding
	Ring        key.Binding
	Break       key.Binding
	FaultyCable key.Binding
	Destroy     key.Binding
	NewPair     key.Binding
	NewLoopback key.Binding
}

func NewDashboardKeys() DashboardKeys {
	return DashboardKeys{
		CommonKeys: NewCommonKeys(),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run command"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh"),
		),
		ToggleRTS: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "toggle rts"),
		),
		ToggleDTR: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle dtr"),
		),
		Hangup: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "hang up"),
		),
		Ring: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "toggle ring"),
		),
		Break: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "inject break"),
		),
		FaultyCable: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle faulty cable"),
		),
		Destroy: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "destroy"),
		),
		NewPair: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new null-modem"),
		),
		NewLoopback: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "new loopback"),
		),
	}
}

func (k DashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.CommandMode, k.ToggleRTS, k.ToggleDTR, k.Quit}
}

func (k DashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Refresh, k.CommandMode, k.Escape},
		{k.ToggleRTS, k.ToggleDTR, k.Hangup, k.Ring, k.Break, k.FaultyCable},
		{k.NewPair, k.NewLoopback, k.Destroy},
		{k.Enter, k.Help, k.Quit},
	}
}
