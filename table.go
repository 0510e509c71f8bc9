package vserial

import (
	"fmt"
	"sync"
)

// AutoIndex asks the device table for the lowest free slot.
const AutoIndex = -1

// Adapter is a virtual multi-port serial adapter: a fixed-capacity table of
// endpoints wired as null-modem pairs or loopbacks. It is safe for
// concurrent use.
type Adapter struct {
	mu        sync.Mutex
	slots     []*device
	taken     []bool
	registrar Registrar
	closed    bool

	lastLoopback *EndpointSpec
	lastPair     *PairSpec
}

// New creates an empty adapter.
func New(opts ...AdapterOption) (*Adapter, error) {
	cfg := DefaultAdapterConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &Adapter{
		slots:     make([]*device, cfg.Capacity),
		taken:     make([]bool, cfg.Capacity),
		registrar: cfg.Registrar,
	}, nil
}

// Capacity returns the number of slots in the device table.
func (a *Adapter) Capacity() int {
	return len(a.slots)
}

// allocateSlot reserves requested, or the lowest free slot for AutoIndex.
// Callers hold a.mu.
func (a *Adapter) allocateSlot(requested int) (int, error) {
	if requested != AutoIndex {
		if requested < 0 || requested >= len(a.taken) {
			return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, requested)
		}
		if a.taken[requested] {
			return 0, fmt.Errorf("%w: %d", ErrSlotInUse, requested)
		}
		a.taken[requested] = true
		return requested, nil
	}
	for i, t := range a.taken {
		if !t {
			a.taken[i] = true
			return i, nil
		}
	}
	return 0, ErrSlotExhausted
}

// freeSlot makes index available again. Callers hold a.mu and have already
// detached the record and released everything attached to it.
func (a *Adapter) freeSlot(index int) {
	a.slots[index] = nil
	a.taken[index] = false
}

// install publishes d in its reserved slot. Callers hold a.mu.
func (a *Adapter) install(d *device) {
	if !a.taken[d.index] || a.slots[d.index] != nil {
		panic(fmt.Sprintf("vserial: installing device %d into a slot that is not reserved", d.index))
	}
	a.slots[d.index] = d
}

// freeSlots returns up to n free indices in ascending order.
// Callers hold a.mu.
func (a *Adapter) freeSlots(n int) []int {
	var free []int
	for i, t := range a.taken {
		if len(free) == n {
			break
		}
		if !t {
			free = append(free, i)
		}
	}
	return free
}

// lookup resolves index to its record, or nil.
func (a *Adapter) lookup(index int) *device {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lookupLocked(index)
}

func (a *Adapter) lookupLocked(index int) *device {
	if index < 0 || index >= len(a.slots) {
		return nil
	}
	return a.slots[index]
}

// device is lookup with the error a caller should see.
func (a *Adapter) device(index int) (*device, error) {
	if index < 0 || index >= len(a.slots) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	d := a.lookup(index)
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, index)
	}
	return d, nil
}

// peerOf resolves the other end of d's cable: d itself for loopback, nil
// when the peer is gone.
func (a *Adapter) peerOf(d *device) *device {
	if d.loopback() {
		return d
	}
	p := a.lookup(d.peer)
	if p != nil && p.peer != d.index {
		panic(fmt.Sprintf("vserial: device %d is paired with %d but %d is paired with %d", d.index, d.peer, p.index, p.peer))
	}
	return p
}

// removeLocked detaches d and its peer from the table and returns them.
// Their slots stay reserved until teardown has released them. Callers hold
// a.mu.
func (a *Adapter) removeLocked(d *device) []*device {
	removed := []*device{d}
	if !d.loopback() {
		p := a.slots[d.peer]
		if p == nil || p.peer != d.index {
			panic(fmt.Sprintf("vserial: device %d has no consistent peer at %d", d.index, d.peer))
		}
		removed = append(removed, p)
	}
	for _, r := range removed {
		a.slots[r.index] = nil
	}
	return removed
}

// teardown hangs up everything attached to the removed records, unregisters
// them from the transport layer and only then frees their slots. It must run
// without a.mu.
func (a *Adapter) teardown(removed []*device) {
	for _, d := range removed {
		if s := d.kill(); s != nil {
			s.hangup(ErrDeviceGone)
		}
	}
	for _, d := range removed {
		if a.registrar != nil {
			a.registrar.Unregister(d.index)
		}
		logger().Debug().Int("index", d.index).Str("kind", d.kind.String()).Msg("device destroyed")
	}

	a.mu.Lock()
	for _, d := range removed {
		a.freeSlot(d.index)
	}
	a.mu.Unlock()
}

// Destroy removes the device at index. A null-modem member takes its peer
// with it.
func (a *Adapter) Destroy(index int) error {
	a.mu.Lock()
	if index < 0 || index >= len(a.slots) {
		a.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	d := a.slots[index]
	if d == nil {
		a.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, index)
	}
	removed := a.removeLocked(d)
	a.mu.Unlock()

	a.teardown(removed)
	return nil
}

// DestroyAll removes every device.
func (a *Adapter) DestroyAll() {
	a.mu.Lock()
	var removed []*device
	for i := range a.slots {
		// removing a pair member clears its peer's slot too
		if d := a.slots[i]; d != nil {
			removed = append(removed, a.removeLocked(d)...)
		}
	}
	a.mu.Unlock()

	a.teardown(removed)
}

// Close destroys every device and refuses further creation.
func (a *Adapter) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.DestroyAll()
	return nil
}
