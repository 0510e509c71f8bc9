package components

import (
	"strconv"

	vserial "github.com/allbin/go-vserial"
	"github.com/allbin/go-vserial/internal/tui/colors"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DevicesMsg carries a fresh device listing.
type DevicesMsg struct {
	Devices []vserial.DeviceInfo
	Err     error
}

type DeviceTable struct {
	table   table.Model
	devices []vserial.DeviceInfo
}

func NewDeviceTable(width, height int) *DeviceTable {
	// Ensure minimum dimensions for proper table initialization
	if width < 80 {
		width = 80
	}
	if height < 5 {
		height = 5
	}

	t := table.New(
		table.WithColumns(deviceColumns(width)),
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Text).
		Background(colors.Surface1).
		Bold(false)
	t.SetStyles(s)

	return &DeviceTable{table: t}
}

// deviceColumns fits the parameter column into whatever width the fixed
// columns leave.
func deviceColumns(width int) []table.Column {
	if width < 80 {
		width = 80
	}
	const fixed = 6 + 6 + 20 + 5 + 10 + 16 + 10 + 10
	// roughly one separator per column
	paramsWidth := width - fixed - 9
	if paramsWidth < 12 {
		paramsWidth = 12
	}
	return []table.Column{
		{Title: "Index", Width: 6},
		{Title: "Peer", Width: 6},
		{Title: "Kind", Width: 20},
		{Title: "Open", Width: 5},
		{Title: "MCR", Width: 10},
		{Title: "MSR", Width: 16},
		{Title: "Params", Width: paramsWidth},
		{Title: "TX", Width: 10},
		{Title: "RX", Width: 10},
	}
}

func (dt *DeviceTable) SetSize(width, height int) {
	dt.table.SetColumns(deviceColumns(width))
	dt.table.SetHeight(height)
	dt.table.SetWidth(width)
	dt.table.UpdateViewport()
}

// SetDevices replaces the listing, keeping the cursor on the same device
// when it still exists.
func (dt *DeviceTable) SetDevices(devices []vserial.DeviceInfo) {
	selected, hadSelection := dt.Selected()
	dt.devices = devices

	rows := make([]table.Row, len(devices))
	cursor := 0
	for i, d := range devices {
		rows[i] = FormatDeviceRow(d)
		if hadSelection && d.Index == selected.Index {
			cursor = i
		}
	}
	dt.table.SetRows(rows)
	if len(rows) > 0 {
		dt.table.SetCursor(cursor)
	}
	dt.table.UpdateViewport()
}

// Selected returns the device under the cursor.
func (dt *DeviceTable) Selected() (vserial.DeviceInfo, bool) {
	i := dt.table.Cursor()
	if i < 0 || i >= len(dt.devices) {
		return vserial.DeviceInfo{}, false
	}
	return dt.devices[i], true
}

func (dt *DeviceTable) Len() int {
	return len(dt.devices)
}

// FormatDeviceRow renders one device as a table row.
func FormatDeviceRow(d vserial.DeviceInfo) table.Row {
	peer := "self"
	if d.Peer != d.Index {
		peer = vserial.FormatIndex(d.Peer)
	}
	open := "no"
	if d.Open {
		open = "yes"
	}
	params := d.Params.String()
	if !d.Open {
		params = "-"
	}
	if d.FaultyCable {
		params += " !cable"
	}
	return table.Row{
		vserial.FormatIndex(d.Index),
		peer,
		d.Kind.String(),
		open,
		d.MCR.String(),
		d.MSR.String(),
		params,
		strconv.FormatUint(d.Counters.TX, 10),
		strconv.FormatUint(d.Counters.RX, 10),
	}
}

func (dt *DeviceTable) Init() tea.Cmd {
	return nil
}

func (dt *DeviceTable) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	dt.table, cmd = dt.table.Update(msg)
	return dt, cmd
}

func (dt *DeviceTable) View() string {
	if len(dt.devices) == 0 {
		return lipgloss.NewStyle().
			Foreground(colors.Overlay0).
			Padding(1, 2).
			Render("No devices. Press n for a null-modem pair or : to type a command.")
	}
	return dt.table.View()
}
