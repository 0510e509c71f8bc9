package vserial

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WaitForLineChange blocks until one of the status lines selected by mask
// produces an interrupt on the endpoint at index, and returns the ones that
// did. It fails with ErrDeviceGone when the endpoint is destroyed and with
// ErrInterrupted when ctx ends.
func (a *Adapter) WaitForLineChange(ctx context.Context, index int, mask SignalMask) (SignalMask, error) {
	d, err := a.device(index)
	if err != nil {
		return 0, err
	}
	_, _, changed, err := waitForLineChange(ctx, d, nil, mask)
	return changed, err
}

// Waiting reports whether anyone is blocked waiting for a line change on
// the endpoint at index.
func (a *Adapter) Waiting(index int) (bool, error) {
	d, err := a.device(index)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiters > 0, nil
}

// waitForLineChange snapshots the interrupt counts, then sleeps without the
// device lock until a selected one moves. It reads d.irq rather than
// d.counters so a first open resetting the counters is not a change. A non-nil s also ends the wait when
// that session hangs up.
func waitForLineChange(ctx context.Context, d *device, s *session, mask SignalMask) (mcr, msr LineMask, changed SignalMask, err error) {
	if mask == 0 || mask&^SignalAll != 0 {
		return 0, 0, 0, ErrInvalidSignalMask
	}

	var hup <-chan struct{}
	if s != nil {
		hup = s.hupCh
	}

	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		return 0, 0, 0, ErrDeviceGone
	}
	snap := d.irq
	oldMSR := d.msr
	d.waiters++
	defer func() {
		d.mu.Lock()
		d.waiters--
		d.mu.Unlock()
	}()

	for {
		if d.dead {
			d.mu.Unlock()
			return 0, 0, 0, ErrDeviceGone
		}
		if changed = d.irq.changedSignals(snap) & mask; changed != 0 {
			changed |= detectSignalChanges(oldMSR, d.msr) & mask
			mcr, msr = d.mcr, d.msr
			d.mu.Unlock()
			return mcr, msr, changed, nil
		}
		ch := d.changed
		d.mu.Unlock()

		select {
		case <-ch:
		case <-hup:
			return 0, 0, 0, s.hungUp()
		case <-ctx.Done():
			return 0, 0, 0, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}
		d.mu.Lock()
	}
}

// WaitForSignalChange blocks until any monitored signal changes state
// Returns new signal states and which signal(s) changed
func (p *port) WaitForSignalChange(mask SignalMask, timeout time.Duration) (ModemSignals, SignalMask, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	signals, changed, err := p.WaitForSignalChangeContext(ctx, mask)
	if errors.Is(err, context.DeadlineExceeded) {
		return ModemSignals{}, 0, ErrSignalTimeout
	}
	return signals, changed, err
}

// WaitForSignalChangeContext waits with context cancellation support
func (p *port) WaitForSignalChangeContext(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error) {
	if mask == 0 {
		return ModemSignals{}, 0, ErrInvalidSignalMask
	}
	if err := p.check(); err != nil {
		return ModemSignals{}, 0, err
	}

	mcr, msr, changed, err := waitForLineChange(ctx, p.d, p.s, mask)
	if err != nil {
		return ModemSignals{}, 0, err
	}
	return modemSignals(mcr, msr), changed, nil
}
