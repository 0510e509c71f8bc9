package vserial

import (
	"fmt"
	"sync"
)

// DeviceKind classifies how an endpoint is wired.
type DeviceKind int

const (
	StandardNullModem DeviceKind = iota
	CustomNullModem
	StandardLoopback
	CustomLoopback
)

func (k DeviceKind) String() string {
	switch k {
	case StandardNullModem:
		return "standard-null-modem"
	case CustomNullModem:
		return "custom-null-modem"
	case StandardLoopback:
		return "standard-loopback"
	case CustomLoopback:
		return "custom-loopback"
	default:
		return "unknown"
	}
}

// Loopback reports whether the kind describes a self-wired endpoint.
func (k DeviceKind) Loopback() bool {
	return k == StandardLoopback || k == CustomLoopback
}

// Counters are the per-endpoint interrupt and byte counters. They only grow,
// except for the reset performed when a closed endpoint is opened.
type Counters struct {
	TX         uint64
	RX         uint64
	CTS        uint64
	DSR        uint64
	DCD        uint64
	RI         uint64
	Break      uint64
	Frame      uint64
	Parity     uint64
	Overrun    uint64
	BufOverrun uint64
}

// String renders the counters in the "evt" attribute layout:
// tx#rx#cts#dcd#dsr#brk#rng#frame#parity#overrun#buf_overrun#
func (c Counters) String() string {
	return fmt.Sprintf("%d#%d#%d#%d#%d#%d#%d#%d#%d#%d#%d#",
		c.TX, c.RX, c.CTS, c.DCD, c.DSR, c.Break, c.RI, c.Frame, c.Parity, c.Overrun, c.BufOverrun)
}

// changedSignals reports which modem status counters differ between c and
// other.
func (c Counters) changedSignals(other Counters) SignalMask {
	var changed SignalMask
	if c.CTS != other.CTS {
		changed |= SignalCTS
	}
	if c.DSR != other.DSR {
		changed |= SignalDSR
	}
	if c.RI != other.RI {
		changed |= SignalRI
	}
	if c.DCD != other.DCD {
		changed |= SignalDCD
	}
	return changed
}

// countEdge bumps the interrupt counter for a status line transition.
// Injected ring indications only interrupt on their rising edge; ring driven
// through a pin map counts both edges like the other lines.
func (c *Counters) countEdge(line LineMask, rising, injected bool) {
	switch line {
	case LineCTS:
		c.CTS++
	case LineDSR:
		c.DSR++
	case LineDCD:
		c.DCD++
	case LineRI:
		if rising || !injected {
			c.RI++
		}
	}
}

// device is one virtual endpoint. index, peer, the pin maps, dtrAtOpen and
// kind never change after construction; everything else is guarded by mu.
type device struct {
	index     int
	peer      int
	rtsMap    LineMask
	dtrMap    LineMask
	dtrAtOpen bool
	kind      DeviceKind

	mu          sync.Mutex
	mcr         LineMask
	msr         LineMask
	params      LineParams
	hungUp      bool // B0 in effect
	breakActive bool
	txPaused    bool // XOFF received
	hwStopped   bool // CTS low under hardware flow control
	stopped     bool
	throttled   bool
	faultyCable bool
	counters    Counters
	irq         Counters // status interrupts since creation, never reset
	waiters     int
	sess        *session
	dead        bool

	changed chan struct{}
	gone    chan struct{}
}

func newDevice(index, peer int, rtsMap, dtrMap LineMask, dtrAtOpen bool, kind DeviceKind) *device {
	return &device{
		index:     index,
		peer:      peer,
		rtsMap:    rtsMap,
		dtrMap:    dtrMap,
		dtrAtOpen: dtrAtOpen,
		kind:      kind,
		params:    DefaultConfig().lineParams(),
		changed:   make(chan struct{}),
		gone:      make(chan struct{}),
	}
}

func (d *device) loopback() bool {
	return d.index == d.peer
}

// signal wakes everything blocked on the device. Callers hold d.mu.
func (d *device) signal() {
	close(d.changed)
	d.changed = make(chan struct{})
}

// canTransmit reports whether the transmitter is free to send.
// Callers hold d.mu.
func (d *device) canTransmit() bool {
	return !d.txPaused && !d.hwStopped && !d.stopped
}

// updateHardwareStop recomputes the CTS gate from the current MSR and
// reports whether the transmitter was released. Callers hold d.mu.
func (d *device) updateHardwareStop() bool {
	was := d.hwStopped
	d.hwStopped = d.params.FlowControl.hardware() && d.msr&LineCTS == 0
	return was && !d.hwStopped
}

// kill marks the device destroyed and returns its session, if any, for the
// caller to hang up outside the lock.
func (d *device) kill() *session {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead {
		return nil
	}
	d.dead = true
	close(d.gone)
	d.signal()
	s := d.sess
	d.sess = nil
	return s
}

// lockPair locks a and b in index order and returns the matching unlock.
// b may be nil or equal to a.
func lockPair(a, b *device) func() {
	switch {
	case b == nil || b == a:
		a.mu.Lock()
		return a.mu.Unlock
	case a.index < b.index:
		a.mu.Lock()
		b.mu.Lock()
	default:
		b.mu.Lock()
		a.mu.Lock()
	}
	return func() {
		a.mu.Unlock()
		b.mu.Unlock()
	}
}
