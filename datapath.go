package vserial

// transmit sends p from d across the cable. It returns len(p) whenever the
// bytes left d, whether or not anything received them: a faulty cable, an
// unopened receiver or a baud/frame mismatch all lose bytes in transit
// without telling the sender. force sends even while the transmitter is
// paused and is used for XON/XOFF.
func (a *Adapter) transmit(d *device, p []byte, force bool) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	recv := a.peerOf(d)
	unlock := lockPair(d, recv)

	if d.dead {
		unlock()
		return 0, ErrDeviceGone
	}
	if !force && !d.canTransmit() {
		unlock()
		return 0, nil
	}
	if d.breakActive {
		unlock()
		return 0, ErrBreakActive
	}

	n := len(p)
	d.counters.TX += uint64(n)
	if d.faultyCable || recv == nil || recv.dead || recv.sess == nil || !d.params.compatible(recv.params) {
		unlock()
		return n, nil
	}

	mask := dataMask(recv.params.DataBits)
	out := make([]byte, 0, n)
	resumed := false
	for _, b := range p {
		b &= mask
		if recv.params.FlowControl == FlowControlXONXOFF {
			switch b {
			case XOFF:
				recv.txPaused = true
				continue
			case XON:
				resumed = resumed || recv.txPaused
				recv.txPaused = false
				continue
			}
		}
		out = append(out, b)
	}
	recv.counters.RX += uint64(n)
	if resumed {
		recv.signal()
	}

	throttle := false
	if len(out) > 0 {
		accepted, level := recv.sess.deliver(out)
		if accepted < len(out) {
			recv.counters.BufOverrun++
		}
		throttle = recv.params.FlowControl != FlowControlNone && !recv.throttled &&
			level >= recv.sess.limit*3/4
	}
	unlock()

	if throttle {
		a.throttle(recv)
	}
	return n, nil
}

// transmitOne sends a single byte regardless of the pause state.
func (a *Adapter) transmitOne(d *device, b byte) error {
	_, err := a.transmit(d, []byte{b}, true)
	return err
}
