package vserial

// updateLines drives d's RTS/DTR outputs and propagates the result through
// the pin maps to the status register on the far end of the cable (d
// itself for loopback). clear is applied before set, so an output present
// in both ends up asserted and a status line fed by two asserted outputs
// stays asserted.
//
// d and its target are locked together, lower index first, so the MCR and
// the peer MSR change as one step for any observer taking the same locks.
//
// Interrupt counters move only when a status line actually changes state.
// Re-asserting a line that is already high counts nothing and wakes no
// waiter.
func (a *Adapter) updateLines(d *device, set, clear LineMask) error {
	set &= ControlLines
	clear &= ControlLines

	target := a.peerOf(d)
	unlock := lockPair(d, target)
	defer unlock()

	if d.dead {
		return ErrDeviceGone
	}
	if target != nil && target.dead {
		target = nil
	}

	d.mcr &^= clear
	d.mcr |= set
	if target == nil {
		return nil
	}

	var drop, raise LineMask
	if clear&LineRTS != 0 {
		drop |= d.rtsMap
	}
	if clear&LineDTR != 0 {
		drop |= d.dtrMap
	}
	if set&LineRTS != 0 {
		raise |= d.rtsMap
	}
	if set&LineDTR != 0 {
		raise |= d.dtrMap
	}
	// a line that is both dropped and raised ends asserted without
	// producing an edge when it was already high
	next := target.msr&^drop | raise
	target.applyStatus(next, false)
	return nil
}

// applyStatus moves the MSR to next, counting one interrupt per edge, and
// wakes whoever cares about the change. injected marks a fault-injected
// change rather than one driven by the peer's pin map. Callers hold d.mu.
func (d *device) applyStatus(next LineMask, injected bool) {
	prev := d.msr
	d.msr = next

	edges := (prev ^ next) & StatusLines
	if edges == 0 {
		return
	}
	before := d.irq
	for _, p := range pinOrder {
		if edges&p.line != 0 {
			rising := next&p.line != 0
			d.counters.countEdge(p.line, rising, injected)
			d.irq.countEdge(p.line, rising, injected)
		}
	}
	counted := d.irq != before
	carrierUp := edges&LineDCD != 0 && next&LineDCD != 0
	released := d.updateHardwareStop()

	switch {
	case counted && d.waiters > 0:
		d.signal()
	case carrierUp && d.sess != nil && d.sess.carrierWaiters > 0:
		d.signal()
	case released:
		d.signal()
	}
}

// SetModemLines asserts set and de-asserts clear on the endpoint at index
// without requiring it to be open. Only RTS and DTR are honoured.
func (a *Adapter) SetModemLines(index int, set, clear LineMask) error {
	d, err := a.device(index)
	if err != nil {
		return err
	}
	return a.updateLines(d, set, clear)
}

// ModemLines returns the control and status registers of the endpoint at
// index, read together.
func (a *Adapter) ModemLines(index int) (mcr, msr LineMask, err error) {
	d, err := a.device(index)
	if err != nil {
		return 0, 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead {
		return 0, 0, ErrDeviceGone
	}
	return d.mcr, d.msr, nil
}
