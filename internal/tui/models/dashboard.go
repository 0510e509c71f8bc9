package models

import (
	"context"
	"sync"

	vserial "github.com/allbin/go-vserial"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeCommand
)

func (m InputMode) String() string {
	switch m {
	case InputModeCommand:
		return "COMMAND"
	default:
		return "NORMAL"
	}
}

// Source is the adapter as seen through its control channel.
type Source interface {
	List(ctx context.Context, filter string) ([]vserial.DeviceInfo, error)
	Do(ctx context.Context, request string) (string, error)
	SetModemLines(ctx context.Context, index int, set, clear vserial.LineMask) (mcr, msr vserial.LineMask, err error)
	Fault(ctx context.Context, index int, event byte) error
	Hangup(ctx context.Context, index int) error
}

// ReplyMsg reports the outcome of a command sent to the adapter.
type ReplyMsg struct {
	Request string
	Reply   string
	Err     error
}

type DashboardModel struct {
	source     Source
	socketPath string
	filter     string

	devices []vserial.DeviceInfo
	err     error
	ready   bool

	inputMode InputMode

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewDashboardModel(source Source, socketPath, filter string) *DashboardModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &DashboardModel{
		source:     source,
		socketPath: socketPath,
		filter:     filter,
		inputMode:  InputModeNormal,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (m *DashboardModel) Source() Source {
	return m.source
}

func (m *DashboardModel) SocketPath() string {
	return m.socketPath
}

func (m *DashboardModel) Filter() string {
	return m.filter
}

func (m *DashboardModel) Devices() []vserial.DeviceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devices
}

func (m *DashboardModel) SetDevices(devices []vserial.DeviceInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = devices
}

// Waiting counts devices with a parked line-change waiter.
func (m *DashboardModel) Waiting() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.devices {
		if d.Waiting {
			n++
		}
	}
	return n
}

func (m *DashboardModel) GetError() error {
	return m.err
}

func (m *DashboardModel) SetError(err error) {
	m.err = err
}

func (m *DashboardModel) IsReady() bool {
	return m.ready
}

func (m *DashboardModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *DashboardModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *DashboardModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *DashboardModel) IsInCommandMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode == InputModeCommand
}

func (m *DashboardModel) GetContext() context.Context {
	return m.ctx
}

func (m *DashboardModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

// ToggleLine returns the set and clear masks that flip line on the device.
func ToggleLine(info vserial.DeviceInfo, line vserial.LineMask) (set, clear vserial.LineMask) {
	if info.MCR&line != 0 {
		return 0, line
	}
	return line, 0
}

// RingEvent returns the fault event that flips RI on the device.
func RingEvent(info vserial.DeviceInfo) byte {
	if info.MSR&vserial.LineRI != 0 {
		return vserial.FaultRingOff
	}
	return vserial.FaultRingOn
}

// CableEvent returns the fault event that flips the faulty cable flag.
func CableEvent(info vserial.DeviceInfo) byte {
	if info.FaultyCable {
		return vserial.FaultCableRepair
	}
	return vserial.FaultCableCut
}
