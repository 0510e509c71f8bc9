package vserial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Port represents an open virtual serial endpoint. It is a superset of
// go.bug.st/serial's Port, so code written against that library can be
// handed a virtual port.
type Port interface {
	serial.Port

	ReadContext(ctx context.Context, buf []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	Index() int
	FlushInput() error
	FlushOutput() error

	// Modem signal control and monitoring
	GetCTSStatus() (bool, error)
	GetModemSignals() (ModemSignals, error)
	GetRTS() (bool, error)
	GetDTR() (bool, error)
	SetModemLines(set, clear LineMask) error
	WaitForSignalChange(mask SignalMask, timeout time.Duration) (ModemSignals, SignalMask, error)
	WaitForSignalChangeContext(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error)
	Counters() (Counters, error)

	// Line control
	LineParams() (LineParams, error)
	SetLineParams(params LineParams) error
	SetBreak(on bool) error
	Throttle() error
	Unthrottle() error
	Stop() error
	Start() error
	Hangup() error
}

// port is the concrete implementation of the Port interface
type port struct {
	a *Adapter
	d *device
	s *session

	mu          sync.RWMutex
	config      Config
	readTimeout time.Duration
	closed      bool
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

// Open opens the endpoint at index with the given options
func (a *Adapter) Open(index int, opts ...Option) (Port, error) {
	return a.OpenContext(context.Background(), index, opts...)
}

// OpenContext opens the endpoint at index. ctx bounds the carrier wait
// requested with WithCarrierWait.
func (a *Adapter) OpenContext(ctx context.Context, index int, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	params := config.lineParams()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	d, err := a.device(index)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		return nil, ErrDeviceGone
	}
	first := d.sess == nil
	if first {
		d.sess = newSession(config.RxBufferSize)
		d.counters = Counters{}
		d.params = params
		d.hungUp = false
		d.breakActive = false
		d.txPaused = false
		d.stopped = false
		d.throttled = false
		d.updateHardwareStop()
	}
	s := d.sess
	s.refs++
	d.mu.Unlock()

	p := &port{
		a:           a,
		d:           d,
		s:           s,
		config:      config,
		readTimeout: config.ReadTimeout,
	}

	if first && d.dtrAtOpen {
		if err := a.updateLines(d, ControlLines, 0); err != nil {
			p.Close()
			return nil, err
		}
	}

	// Apply initial signal states if configured
	if config.InitialRTS != nil {
		if err := p.SetRTS(*config.InitialRTS); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}
	if config.InitialDTR != nil {
		if err := p.SetDTR(*config.InitialDTR); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}

	if config.WaitForCarrier {
		if err := p.waitForCarrier(ctx); err != nil {
			p.Close()
			return nil, err
		}
	}

	logger().Debug().Int("index", index).Bool("first", first).Str("params", params.String()).Msg("port opened")
	return p, nil
}

// waitForCarrier blocks until DCD is asserted on the endpoint.
func (p *port) waitForCarrier(ctx context.Context) error {
	d := p.d
	d.mu.Lock()
	p.s.carrierWaiters++
	defer func() {
		d.mu.Lock()
		p.s.carrierWaiters--
		d.mu.Unlock()
	}()

	for {
		if d.dead {
			d.mu.Unlock()
			return ErrDeviceGone
		}
		if d.msr&LineDCD != 0 {
			d.mu.Unlock()
			return nil
		}
		changed := d.changed
		d.mu.Unlock()

		select {
		case <-changed:
		case <-p.s.hupCh:
			return p.s.hungUp()
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}
		d.mu.Lock()
	}
}

// check returns ErrPortClosed once Close has been called.
func (p *port) check() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPortClosed
	}
	return nil
}

// Index returns the device table index of the endpoint
func (p *port) Index() int {
	return p.d.index
}

// Close detaches the port from its endpoint. Closing the last port drops
// DTR and RTS when hang-up-on-close is set.
func (p *port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPortClosed
	}
	p.closed = true
	p.mu.Unlock()

	d := p.d
	d.mu.Lock()
	if d.dead || d.sess != p.s {
		d.mu.Unlock()
		return nil
	}
	p.s.refs--
	last := p.s.refs == 0
	hup := last && d.params.HangupOnClose
	if last {
		d.sess = nil
	}
	d.mu.Unlock()

	if last {
		p.s.hangup(ErrPortClosed)
	}
	if hup {
		if err := p.a.updateLines(d, 0, ControlLines); err != nil && !errors.Is(err, ErrDeviceGone) {
			return err
		}
	}
	logger().Debug().Int("index", d.index).Bool("last", last).Msg("port closed")
	return nil
}

// Read reads data from the port. It honours the read timeout: with
// serial.NoTimeout it blocks until data arrives, otherwise a timeout
// returns (0, nil).
func (p *port) Read(buf []byte) (int, error) {
	return p.ReadContext(context.Background(), buf)
}

// ReadContext reads data with context cancellation support
func (p *port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	p.mu.RLock()
	timeout := p.readTimeout
	p.mu.RUnlock()

	n, level, err := p.s.read(ctx, buf, timeout)
	if n > 0 && level <= p.s.limit/4 {
		p.a.unthrottleIf(p.d, p.s)
	}
	return n, err
}

// Write writes data to the port. A paused transmitter makes Write wait up
// to the CTS timeout for it to be released.
func (p *port) Write(data []byte) (int, error) {
	return p.WriteContext(context.Background(), data)
}

// WriteContext writes data with context cancellation support
func (p *port) WriteContext(ctx context.Context, data []byte) (int, error) {
	if err := p.check(); err != nil {
		return 0, err
	}

	// Check if context is already cancelled
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	total := 0
	for total < len(data) {
		if err := p.s.hungUp(); err != nil {
			return total, err
		}
		n, err := p.a.transmit(p.d, data[total:], false)
		if err != nil {
			return total, err
		}
		if n == 0 {
			if err := p.waitWritable(ctx); err != nil {
				return total, err
			}
			continue
		}
		total += n
	}
	return total, nil
}

// waitWritable blocks until the transmitter is released, the CTS timeout
// expires or the context ends.
func (p *port) waitWritable(ctx context.Context) error {
	var expired <-chan time.Time
	if p.config.CTSTimeout > 0 {
		timer := time.NewTimer(p.config.CTSTimeout)
		defer timer.Stop()
		expired = timer.C
	}

	d := p.d
	d.mu.Lock()
	for !d.canTransmit() {
		if d.dead {
			d.mu.Unlock()
			return ErrDeviceGone
		}
		changed := d.changed
		d.mu.Unlock()

		select {
		case <-changed:
		case <-p.s.hupCh:
			return p.s.hungUp()
		case <-expired:
			return ErrCTSTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
		d.mu.Lock()
	}
	d.mu.Unlock()
	return nil
}

// SetMode applies a go.bug.st/serial mode. Flow control is left unchanged.
func (p *port) SetMode(mode *serial.Mode) error {
	if mode == nil {
		return ErrInvalidConfig
	}
	cur, err := p.LineParams()
	if err != nil {
		return err
	}
	next, err := cur.withMode(mode)
	if err != nil {
		return err
	}
	return p.SetLineParams(next)
}

// LineParams returns the current line configuration
func (p *port) LineParams() (LineParams, error) {
	if err := p.check(); err != nil {
		return LineParams{}, err
	}
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.d.dead {
		return LineParams{}, ErrDeviceGone
	}
	return p.d.params, nil
}

// SetLineParams changes the line configuration. A zero baud rate hangs the
// line up by dropping DTR and RTS and leaves every other setting alone;
// the next non-zero rate raises them again.
func (p *port) SetLineParams(params LineParams) error {
	if err := p.check(); err != nil {
		return err
	}
	d := p.d

	if params.BaudRate == 0 {
		d.mu.Lock()
		if d.dead {
			d.mu.Unlock()
			return ErrDeviceGone
		}
		d.hungUp = true
		d.mu.Unlock()
		return p.a.updateLines(d, 0, ControlLines)
	}

	if err := params.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		return ErrDeviceGone
	}
	leaving := d.hungUp
	d.hungUp = false
	d.params = params
	resumed := false
	if params.FlowControl != FlowControlXONXOFF && d.txPaused {
		d.txPaused = false
		resumed = true
	}
	if params.FlowControl != FlowControlRTSCTS && params.FlowControl != FlowControlXONXOFF {
		d.throttled = false
	}
	if d.updateHardwareStop() || resumed {
		d.signal()
	}
	throttled := d.throttled
	d.mu.Unlock()

	if leaving {
		set := LineDTR
		if params.FlowControl != FlowControlRTSCTS || !throttled {
			set |= LineRTS
		}
		return p.a.updateLines(d, set, 0)
	}
	return nil
}

// Drain returns once all written data has left the port. Writes are
// delivered synchronously, so there is never anything pending.
func (p *port) Drain() error {
	return p.check()
}

// ResetInputBuffer discards any unread input data
func (p *port) ResetInputBuffer() error {
	if err := p.check(); err != nil {
		return err
	}
	p.s.flush()
	p.a.unthrottleIf(p.d, p.s)
	return nil
}

// ResetOutputBuffer discards any unwritten output data
func (p *port) ResetOutputBuffer() error {
	return p.check()
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	return p.ResetInputBuffer()
}

// FlushOutput discards any unwritten output data
func (p *port) FlushOutput() error {
	return p.ResetOutputBuffer()
}

// SetReadTimeout sets the timeout for Read. serial.NoTimeout blocks.
func (p *port) SetReadTimeout(t time.Duration) error {
	if t < 0 && t != serial.NoTimeout {
		return ErrInvalidConfig
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	p.readTimeout = t
	return nil
}

// SetModemLines asserts set and de-asserts clear in one step
func (p *port) SetModemLines(set, clear LineMask) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.a.updateLines(p.d, set, clear)
}

func (p *port) setLine(line LineMask, state bool) error {
	if state {
		return p.SetModemLines(line, 0)
	}
	return p.SetModemLines(0, line)
}

// SetRTS manually sets the RTS signal state
// When true, asserts RTS (signals readiness to receive)
// When false, deasserts RTS (signals not ready)
func (p *port) SetRTS(state bool) error {
	return p.setLine(LineRTS, state)
}

// SetDTR sets the DTR signal state
func (p *port) SetDTR(state bool) error {
	return p.setLine(LineDTR, state)
}

func (p *port) registers() (mcr, msr LineMask, err error) {
	if err := p.check(); err != nil {
		return 0, 0, err
	}
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.d.dead {
		return 0, 0, ErrDeviceGone
	}
	return p.d.mcr, p.d.msr, nil
}

// GetRTS returns current RTS signal state
func (p *port) GetRTS() (bool, error) {
	mcr, _, err := p.registers()
	return mcr&LineRTS != 0, err
}

// GetDTR returns current DTR signal state
func (p *port) GetDTR() (bool, error) {
	mcr, _, err := p.registers()
	return mcr&LineDTR != 0, err
}

// GetCTSStatus returns the current CTS status
func (p *port) GetCTSStatus() (bool, error) {
	_, msr, err := p.registers()
	return msr&LineCTS != 0, err
}

// GetModemSignals returns current state of all modem control signals
func (p *port) GetModemSignals() (ModemSignals, error) {
	mcr, msr, err := p.registers()
	if err != nil {
		return ModemSignals{}, err
	}
	return modemSignals(mcr, msr), nil
}

// GetModemStatusBits returns the status lines in go.bug.st/serial form
func (p *port) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	_, msr, err := p.registers()
	if err != nil {
		return nil, err
	}
	return &serial.ModemStatusBits{
		CTS: msr&LineCTS != 0,
		DSR: msr&LineDSR != 0,
		RI:  msr&LineRI != 0,
		DCD: msr&LineDCD != 0,
	}, nil
}

// Counters returns a snapshot of the interrupt and byte counters
func (p *port) Counters() (Counters, error) {
	if err := p.check(); err != nil {
		return Counters{}, err
	}
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.d.dead {
		return Counters{}, ErrDeviceGone
	}
	return p.d.counters, nil
}

// Break holds a break condition on the line for duration d
func (p *port) Break(d time.Duration) error {
	if err := p.SetBreak(true); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.s.hupCh:
	}
	return p.SetBreak(false)
}

// SetBreak sets or clears the break condition. Asserting an inactive break
// delivers one NUL byte to the receiving session and counts one break on
// the receiver; asserting it again has no effect.
func (p *port) SetBreak(on bool) error {
	if err := p.check(); err != nil {
		return err
	}
	d := p.d
	recv := p.a.peerOf(d)
	unlock := lockPair(d, recv)
	defer unlock()

	if d.dead {
		return ErrDeviceGone
	}
	if !on {
		d.breakActive = false
		return nil
	}
	if d.breakActive {
		return nil
	}
	d.breakActive = true
	if recv == nil || recv.dead {
		return nil
	}
	recv.counters.Break++
	if recv.sess != nil {
		recv.sess.deliver([]byte{0})
	}
	return nil
}

// Throttle asks the far end to stop sending
func (p *port) Throttle() error {
	if err := p.check(); err != nil {
		return err
	}
	return p.a.throttle(p.d)
}

// Unthrottle lets the far end send again
func (p *port) Unthrottle() error {
	if err := p.check(); err != nil {
		return err
	}
	return p.a.unthrottle(p.d)
}

// Stop pauses the local transmitter
func (p *port) Stop() error {
	return p.setStopped(true)
}

// Start resumes a transmitter paused by Stop
func (p *port) Start() error {
	return p.setStopped(false)
}

func (p *port) setStopped(stopped bool) error {
	if err := p.check(); err != nil {
		return err
	}
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.d.dead {
		return ErrDeviceGone
	}
	was := p.d.stopped
	p.d.stopped = stopped
	if was && !stopped {
		p.d.signal()
	}
	return nil
}

// Hangup hangs up the session the port belongs to
func (p *port) Hangup() error {
	if err := p.check(); err != nil {
		return err
	}
	return p.a.hangup(p.d)
}

// Hangup forces the session open on the endpoint at index into the hung-up
// state and drops DTR and RTS.
func (a *Adapter) Hangup(index int) error {
	d, err := a.device(index)
	if err != nil {
		return err
	}
	return a.hangup(d)
}

func (a *Adapter) hangup(d *device) error {
	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		return ErrDeviceGone
	}
	s := d.sess
	d.mu.Unlock()

	if s != nil {
		s.hangup(ErrHangup)
	}
	logger().Debug().Int("index", d.index).Msg("hangup")
	return a.updateLines(d, 0, ControlLines)
}

// throttle pauses the far end's transmitter: by dropping RTS under RTS/CTS
// flow control, or by sending XOFF under XON/XOFF. Other modes have no way
// to do it.
func (a *Adapter) throttle(d *device) error {
	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		return ErrDeviceGone
	}
	fc := d.params.FlowControl
	if d.throttled || (fc != FlowControlRTSCTS && fc != FlowControlXONXOFF) {
		d.mu.Unlock()
		return nil
	}
	d.throttled = true
	d.mu.Unlock()

	if fc == FlowControlRTSCTS {
		return a.updateLines(d, 0, LineRTS)
	}
	return a.transmitOne(d, XOFF)
}

func (a *Adapter) unthrottle(d *device) error {
	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		return ErrDeviceGone
	}
	fc := d.params.FlowControl
	if !d.throttled {
		d.mu.Unlock()
		return nil
	}
	d.throttled = false
	d.mu.Unlock()

	switch fc {
	case FlowControlRTSCTS:
		return a.updateLines(d, LineRTS, 0)
	case FlowControlXONXOFF:
		return a.transmitOne(d, XON)
	}
	return nil
}

// unthrottleIf releases a throttle taken by the data path once s has
// drained below its low watermark.
func (a *Adapter) unthrottleIf(d *device, s *session) {
	d.mu.Lock()
	throttled := d.throttled && d.sess == s
	d.mu.Unlock()
	if throttled && s.level() <= s.limit/4 {
		if err := a.unthrottle(d); err != nil {
			logger().Debug().Err(err).Int("index", d.index).Msg("unthrottle failed")
		}
	}
}
