package components

import (
	"fmt"

	vserial "github.com/allbin/go-vserial"
	"github.com/allbin/go-vserial/internal/tui/colors"
	"github.com/allbin/go-vserial/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	btable "github.com/evertras/bubble-table/table"
)

const (
	colName  = "name"
	colValue = "value"
	colLine  = "line"
	colState = "state"
	colWire  = "wire"
)

// Detail shows the event counters and modem lines of one device.
type Detail struct {
	counters btable.Model
	lines    btable.Model
	info     vserial.DeviceInfo
	valid    bool
}

func NewDetail() *Detail {
	header := lipgloss.NewStyle().Bold(true).Foreground(colors.Blue)
	base := lipgloss.NewStyle().Foreground(colors.Text).Align(lipgloss.Left)

	return &Detail{
		counters: btable.New([]btable.Column{
			btable.NewColumn(colName, "Event", 12),
			btable.NewColumn(colValue, "Count", 10).WithStyle(lipgloss.NewStyle().Align(lipgloss.Right)),
		}).BorderRounded().HeaderStyle(header).WithBaseStyle(base).Focused(false),
		lines: btable.New([]btable.Column{
			btable.NewColumn(colLine, "Line", 6),
			btable.NewColumn(colState, "State", 6),
			btable.NewColumn(colWire, "Pins", 11),
		}).BorderRounded().HeaderStyle(header).WithBaseStyle(base).Focused(false),
	}
}

// SetDevice shows info, or clears the panel when ok is false.
func (d *Detail) SetDevice(info vserial.DeviceInfo, ok bool) {
	d.info, d.valid = info, ok
	if !ok {
		d.counters = d.counters.WithRows(nil)
		d.lines = d.lines.WithRows(nil)
		return
	}
	d.counters = d.counters.WithRows(CounterRows(info.Counters))
	d.lines = d.lines.WithRows(LineRows(info))
}

// CounterRows lists the counters in control channel order.
func CounterRows(c vserial.Counters) []btable.Row {
	entries := []struct {
		name  string
		value uint64
	}{
		{"TX", c.TX},
		{"RX", c.RX},
		{"CTS", c.CTS},
		{"DCD", c.DCD},
		{"DSR", c.DSR},
		{"Break", c.Break},
		{"RI", c.RI},
		{"Framing", c.Frame},
		{"Parity", c.Parity},
		{"Overrun", c.Overrun},
		{"Buf ovr", c.BufOverrun},
	}
	rows := make([]btable.Row, len(entries))
	for i, e := range entries {
		value := btable.NewStyledCell(e.value, lipgloss.NewStyle().Foreground(colors.Text))
		if e.value > 0 && i >= 7 {
			value = btable.NewStyledCell(e.value, lipgloss.NewStyle().Foreground(colors.Fault))
		}
		rows[i] = btable.NewRow(btable.RowData{colName: e.name, colValue: value})
	}
	return rows
}

// LineRows lists the control lines with their pin maps and the status
// lines as the peer drives them.
func LineRows(info vserial.DeviceInfo) []btable.Row {
	entries := []struct {
		name string
		line vserial.LineMask
		reg  vserial.LineMask
		wire string
	}{
		{"RTS", vserial.LineRTS, info.MCR, vserial.FormatPinMap('7', info.RTSMap)},
		{"DTR", vserial.LineDTR, info.MCR, vserial.FormatPinMap('4', info.DTRMap)},
		{"CTS", vserial.LineCTS, info.MSR, ""},
		{"DSR", vserial.LineDSR, info.MSR, ""},
		{"DCD", vserial.LineDCD, info.MSR, ""},
		{"RI", vserial.LineRI, info.MSR, ""},
	}
	rows := make([]btable.Row, len(entries))
	for i, e := range entries {
		on := e.reg&e.line != 0
		state := "off"
		if on {
			state = "on"
		}
		rows[i] = btable.NewRow(btable.RowData{
			colLine:  e.name,
			colState: btable.NewStyledCell(state, stateStyle(on)),
			colWire:  e.wire,
		})
	}
	return rows
}

func stateStyle(on bool) lipgloss.Style {
	if on {
		return styles.LineOnStyle
	}
	return styles.LineOffStyle
}

func (d *Detail) View() string {
	if !d.valid {
		return styles.DetailBorderStyle.Render("No device selected")
	}
	title := styles.PanelTitleStyle.Render(fmt.Sprintf("ttyV%d  %s", d.info.Index, d.info.Description))
	body := lipgloss.JoinHorizontal(lipgloss.Top, d.counters.View(), " ", d.lines.View())
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}
