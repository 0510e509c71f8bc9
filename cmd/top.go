/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	vserial "github.com/allbin/go-vserial"
	"github.com/allbin/go-vserial/internal/tui/components"
	"github.com/allbin/go-vserial/internal/tui/keys"
	"github.com/allbin/go-vserial/internal/tui/models"
	"github.com/allbin/go-vserial/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const requestTimeout = 5 * time.Second

// topCmd represents the top command
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Live dashboard of the adapter's devices",
	Long: `Show a live, interactive view of every device on the running adapter.

The table lists each device with its peer, kind, line registers, parameters
and byte counters. The panel below shows the event counters and wiring of
the selected device. Keys act on the selected device:

  r / d      toggle RTS / DTR
  R          toggle RI
  b          inject a break
  f          toggle a faulty cable
  h          hang up
  x          destroy (both ends of a pair)
  n / l      create a standard null-modem pair / loopback
  :          type a raw control command (gennm#..., genlb#..., del#...)

Example usage:
  vserial top
  vserial top --filter null-modem --interval 250ms`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		filter, _ := cmd.Flags().GetString("filter")
		interval, _ := cmd.Flags().GetDuration("interval")
		if _, err := vserial.ParseDeviceFilter(filter); err != nil {
			fail("parsing filter", err)
		}

		if err := runTopTUI(client(), viper.GetString("socket"), filter, interval); err != nil {
			fail("running dashboard", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().StringP("filter", "f", "all", "Filter by kind: all, null-modem, loopback, standard, custom")
	topCmd.Flags().DurationP("interval", "i", time.Second, "Refresh interval")
}

type tickMsg time.Time

// topModel represents the Bubble Tea model for the top command
type topModel struct {
	*models.DashboardModel
	devices   *components.DeviceTable
	detail    *components.Detail
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.DashboardKeys
	interval  time.Duration
}

func newTopModel(source models.Source, socketPath, filter string, interval time.Duration) *topModel {
	m := &topModel{
		DashboardModel: models.NewDashboardModel(source, socketPath, filter),
		devices:        components.NewDeviceTable(0, 0), // Will be properly sized by WindowSizeMsg
		detail:         components.NewDetail(),
		statusBar:      components.NewStatusBar(socketPath),
		input:          components.NewInput("gennm#xxxxx#xxxxx#7-8,x,x,x#4-1,6,x,x#7-8,x,x,x#4-1,6,x,x#y#y"),
		help:           help.New(),
		keys:           keys.NewDashboardKeys(),
		interval:       interval,
	}
	return m
}

func runTopTUI(source models.Source, socketPath, filter string, interval time.Duration) error {
	m := newTopModel(source, socketPath, filter, interval)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()

	m.Cancel()
	return err
}

func (m *topModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m *topModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh fetches the device list in the background.
func (m *topModel) refresh() tea.Cmd {
	ctx, source, filter := m.GetContext(), m.Source(), m.Filter()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		devices, err := source.List(ctx, filter)
		return components.DevicesMsg{Devices: devices, Err: err}
	}
}

// request runs fn against the adapter and reports it as a ReplyMsg.
func (m *topModel) request(label string, fn func(ctx context.Context, s models.Source) (string, error)) tea.Cmd {
	ctx, source := m.GetContext(), m.Source()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		reply, err := fn(ctx, source)
		return models.ReplyMsg{Request: label, Reply: reply, Err: err}
	}
}

func (m *topModel) toggleLine(info vserial.DeviceInfo, line vserial.LineMask, name string) tea.Cmd {
	set, clr := models.ToggleLine(info, line)
	return m.request(fmt.Sprintf("%s %s", name, vserial.FormatIndex(info.Index)),
		func(ctx context.Context, s models.Source) (string, error) {
			mcr, msr, err := s.SetModemLines(ctx, info.Index, set, clr)
			return fmt.Sprintf("mcr %s, msr %s", mcr, msr), err
		})
}

func (m *topModel) fault(info vserial.DeviceInfo, event byte, name string) tea.Cmd {
	return m.request(fmt.Sprintf("%s %s", name, vserial.FormatIndex(info.Index)),
		func(ctx context.Context, s models.Source) (string, error) {
			return "", s.Fault(ctx, info.Index, event)
		})
}

func (m *topModel) raw(line string) tea.Cmd {
	return m.request(line, func(ctx context.Context, s models.Source) (string, error) {
		return s.Do(ctx, line)
	})
}

func (m *topModel) command(c vserial.Command) tea.Cmd {
	return m.raw(c.String())
}

func (m *topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title (1) + input (3) + status bar (1) + help (1) + detail panel (16)
		verticalMarginHeight := 1 + 3 + 1 + 1 + 16
		tableHeight := msg.Height - verticalMarginHeight
		if tableHeight < 5 {
			tableHeight = 5
		}
		m.devices.SetSize(msg.Width, tableHeight)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.SetReady(true)

	case tickMsg:
		cmds = append(cmds, m.refresh(), m.tick())

	case components.DevicesMsg:
		if msg.Err != nil {
			m.SetError(msg.Err)
			m.statusBar.SetDisconnected(msg.Err)
			break
		}
		if m.GetError() != nil {
			m.SetError(nil)
			m.statusBar.SetStatus("", nil)
		}
		m.SetDevices(msg.Devices)
		m.devices.SetDevices(msg.Devices)
		m.statusBar.SetConnected(len(msg.Devices), m.Waiting())
		m.detail.SetDevice(m.devices.Selected())

	case models.ReplyMsg:
		switch {
		case msg.Err != nil:
			m.statusBar.SetStatus(fmt.Sprintf("%s: %v", msg.Request, msg.Err), msg.Err)
		case msg.Reply != "":
			m.statusBar.SetStatus(fmt.Sprintf("%s: %s", msg.Request, msg.Reply), nil)
		default:
			m.statusBar.SetStatus(msg.Request+": ok", nil)
		}
		cmds = append(cmds, m.refresh())

	case tea.KeyMsg:
		if m.IsInCommandMode() {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.SetInputMode(models.InputModeNormal)
				m.input.Blur()
				return m, nil
			case key.Matches(msg, m.keys.Enter):
				line := strings.TrimSpace(m.input.Value())
				if line != "" {
					m.input.AddToHistory(line)
					m.input.Reset()
					cmds = append(cmds, m.raw(line))
				}
				return m, tea.Batch(cmds...)
			case msg.Type == tea.KeyUp:
				m.input.NavigateHistoryUp()
				return m, nil
			case msg.Type == tea.KeyDown:
				m.input.NavigateHistoryDown()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		selected, ok := m.devices.Selected()
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.CommandMode):
			m.SetInputMode(models.InputModeCommand)
			return m, m.input.Focus()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Refresh):
			cmds = append(cmds, m.refresh())
		case key.Matches(msg, m.keys.NewPair):
			cmds = append(cmds, m.command(vserial.Command{
				Kind: vserial.CommandNullModem,
				Pair: vserial.PairSpec{
					A: vserial.StandardEndpoint(vserial.AutoIndex),
					B: vserial.StandardEndpoint(vserial.AutoIndex),
				},
			}))
		case key.Matches(msg, m.keys.NewLoopback):
			cmds = append(cmds, m.command(vserial.Command{
				Kind: vserial.CommandLoopback,
				Pair: vserial.PairSpec{A: vserial.StandardEndpoint(vserial.AutoIndex)},
			}))
		case !ok:
			// the remaining keys act on the selected device
		case key.Matches(msg, m.keys.ToggleRTS):
			cmds = append(cmds, m.toggleLine(selected, vserial.LineRTS, "rts"))
		case key.Matches(msg, m.keys.ToggleDTR):
			cmds = append(cmds, m.toggleLine(selected, vserial.LineDTR, "dtr"))
		case key.Matches(msg, m.keys.Ring):
			cmds = append(cmds, m.fault(selected, models.RingEvent(selected), "ring"))
		case key.Matches(msg, m.keys.Break):
			cmds = append(cmds, m.fault(selected, vserial.FaultBreak, "break"))
		case key.Matches(msg, m.keys.FaultyCable):
			cmds = append(cmds, m.fault(selected, models.CableEvent(selected), "cable"))
		case key.Matches(msg, m.keys.Hangup):
			cmds = append(cmds, m.request("hangup "+vserial.FormatIndex(selected.Index),
				func(ctx context.Context, s models.Source) (string, error) {
					return "", s.Hangup(ctx, selected.Index)
				}))
		case key.Matches(msg, m.keys.Destroy):
			cmds = append(cmds, m.command(vserial.Command{Kind: vserial.CommandDestroy, Index: selected.Index}))
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			_, cmd := m.devices.Update(msg)
			cmds = append(cmds, cmd)
			m.detail.SetDevice(m.devices.Selected())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *topModel) View() string {
	if !m.IsReady() {
		return "Initializing..."
	}

	title := styles.TitleStyle.Render("vserial")
	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.devices.View(),
		m.detail.View(),
	)

	timestamp := time.Now().Format("15:04:05")
	commandMode := m.IsInCommandMode()

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		m.input.View(commandMode),
		m.statusBar.View(commandMode, timestamp),
		m.help.View(m.keys),
	)
}
