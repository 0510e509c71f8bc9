package vserial

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}

	if config.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.DataBits)
	}

	if config.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.StopBits)
	}

	if config.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Parity)
	}

	if config.FlowControl != FlowControlNone {
		t.Errorf("Expected FlowControl None, got %v", config.FlowControl)
	}

	if config.CTSTimeout != 500*time.Millisecond {
		t.Errorf("Expected CTSTimeout 500ms, got %v", config.CTSTimeout)
	}

	if !config.HangupOnClose {
		t.Error("Expected HangupOnClose to default to true")
	}
}

func TestFunctionalOptions(t *testing.T) {
	config := DefaultConfig()

	// Test WithBaudRate
	err := WithBaudRate(9600)(&config)
	if err != nil {
		t.Errorf("WithBaudRate failed: %v", err)
	}
	if config.BaudRate != 9600 {
		t.Errorf("Expected BaudRate 9600, got %d", config.BaudRate)
	}

	// Test WithDataBits
	err = WithDataBits(7)(&config)
	if err != nil {
		t.Errorf("WithDataBits failed: %v", err)
	}
	if config.DataBits != 7 {
		t.Errorf("Expected DataBits 7, got %d", config.DataBits)
	}

	// Test WithStopBits
	err = WithStopBits(2)(&config)
	if err != nil {
		t.Errorf("WithStopBits failed: %v", err)
	}
	if config.StopBits != 2 {
		t.Errorf("Expected StopBits 2, got %d", config.StopBits)
	}

	// Test WithParity
	err = WithParity(ParityEven)(&config)
	if err != nil {
		t.Errorf("WithParity failed: %v", err)
	}
	if config.Parity != ParityEven {
		t.Errorf("Expected Parity Even, got %v", config.Parity)
	}

	// Test WithFlowControl
	err = WithFlowControl(FlowControlXONXOFF)(&config)
	if err != nil {
		t.Errorf("WithFlowControl failed: %v", err)
	}
	if config.FlowControl != FlowControlXONXOFF {
		t.Errorf("Expected FlowControl XONXOFF, got %v", config.FlowControl)
	}
}

func TestInvalidBaudRate(t *testing.T) {
	config := DefaultConfig()
	err := WithBaudRate(123456)(&config)
	if err == nil {
		t.Error("Expected error for invalid baud rate")
	}
	if err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}

func TestInvalidDataBits(t *testing.T) {
	config := DefaultConfig()
	err := WithDataBits(9)(&config)
	if err == nil {
		t.Error("Expected error for invalid data bits")
	}
	if err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestInvalidStopBits(t *testing.T) {
	config := DefaultConfig()
	err := WithStopBits(3)(&config)
	if err == nil {
		t.Error("Expected error for invalid stop bits")
	}
	if err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{123456, true}, // Invalid baud rate
		{0, true},      // B0 is not a line rate
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if err != ErrInvalidBaudRate {
				t.Errorf("Expected ErrInvalidBaudRate for %d, got %v", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for baud rate %d: %v", test.input, err)
		}
		if result == 0 {
			t.Errorf("Got zero result for valid baud rate %d", test.input)
		}
		back, err := baudRateFromFlag(result)
		if err != nil || back != test.input {
			t.Errorf("baudRateFromFlag(%d) = %d, %v; want %d", result, back, err, test.input)
		}
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	a := newTestAdapter(t)

	_, err := a.Open(7)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}

	_, err = a.Open(a.Capacity())
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestContextTimeout(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateLoopback(StandardEndpoint(AutoIndex))
	require.NoError(t, err)
	port := openTestPort(t, a, idx)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Microsecond)
	defer cancel()

	// Wait for context to expire
	time.Sleep(10 * time.Microsecond)

	// ReadContext blocks on an empty buffer until the context ends
	buf := make([]byte, 10)
	_, err = port.ReadContext(ctx, buf)
	if err == nil {
		t.Error("Expected timeout error")
	}

	// WriteContext refuses to start with an expired context
	_, err = port.WriteContext(ctx, []byte("test"))
	if err == nil {
		t.Error("Expected timeout error")
	}
}

func TestStandardNullModemScenario(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateNullModem(PairSpec{A: StandardEndpoint(0), B: StandardEndpoint(1)})
	require.NoError(t, err)
	require.Equal(t, [2]int{0, 1}, idx)

	p0 := openTestPort(t, a, 0)
	p1 := openTestPort(t, a, 1)

	signals, err := p1.GetModemSignals()
	require.NoError(t, err)
	assert.True(t, signals.CTS, "CTS follows the peer's RTS")
	assert.True(t, signals.DCD, "DCD follows the peer's DTR")
	assert.True(t, signals.DSR, "DSR follows the peer's DTR")
	assert.False(t, signals.RI)

	for _, i := range idx {
		info, err := a.Info(i)
		require.NoError(t, err)
		assert.Equal(t, StandardNullModem, info.Kind)
	}

	n, err := p0.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = p1.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestLoopbackScenario(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateLoopback(StandardEndpoint(2))
	require.NoError(t, err)
	require.Equal(t, 2, idx)

	p := openTestPort(t, a, 2)
	payload := []byte{0x00, 0x7f, 0x80, 0xff, 'o', 'k'}
	n, err := p.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, 16)
	n, err = p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])

	c, err := p.Counters()
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), c.TX)
	assert.EqualValues(t, len(payload), c.RX)

	info, err := a.Info(2)
	require.NoError(t, err)
	assert.Equal(t, StandardLoopback, info.Kind)
	assert.Equal(t, LineCTS|LineDCD|LineDSR, info.MSR)
}

func TestReadTimeoutReturnsZero(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p := openTestPort(t, a, idx[0], WithReadTimeout(20*time.Millisecond))

	n, err := p.Read(make([]byte, 8))
	assert.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, p.SetReadTimeout(0))
	n, err = p.Read(make([]byte, 8))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestCloseHangsUpLine(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0, err := a.Open(idx[0])
	require.NoError(t, err)
	extra, err := a.Open(idx[0])
	require.NoError(t, err)

	_, msr, err := a.ModemLines(idx[1])
	require.NoError(t, err)
	require.Equal(t, LineCTS|LineDCD|LineDSR, msr)

	// another session reference keeps the line up
	require.NoError(t, extra.Close())
	_, msr, _ = a.ModemLines(idx[1])
	assert.Equal(t, LineCTS|LineDCD|LineDSR, msr)

	require.NoError(t, p0.Close())
	mcr, _, _ := a.ModemLines(idx[0])
	_, msr, _ = a.ModemLines(idx[1])
	assert.Zero(t, mcr)
	assert.Zero(t, msr)

	assert.ErrorIs(t, p0.Close(), ErrPortClosed)
}

func TestCloseWithoutHangupKeepsLine(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0, err := a.Open(idx[0], WithHangupOnClose(false))
	require.NoError(t, err)
	require.NoError(t, p0.Close())

	_, msr, err := a.ModemLines(idx[1])
	require.NoError(t, err)
	assert.Equal(t, LineCTS|LineDCD|LineDSR, msr)
}

func TestSetLineParamsB0(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0 := openTestPort(t, a, idx[0])

	before, err := p0.LineParams()
	require.NoError(t, err)

	hup := before
	hup.BaudRate = 0
	hup.DataBits = 5
	require.NoError(t, p0.SetLineParams(hup))

	after, err := p0.LineParams()
	require.NoError(t, err)
	assert.Equal(t, before, after, "B0 leaves the frame settings alone")
	_, msr, _ := a.ModemLines(idx[1])
	assert.Zero(t, msr)

	resume := before
	resume.BaudRate = 9600
	require.NoError(t, p0.SetLineParams(resume))
	mcr, _, _ := a.ModemLines(idx[0])
	assert.Equal(t, LineDTR|LineRTS, mcr)
	after, _ = p0.LineParams()
	assert.Equal(t, 9600, after.BaudRate)
}

func TestSetLineParamsLeavingB0WhileThrottled(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0 := openTestPort(t, a, idx[0], WithFlowControl(FlowControlRTSCTS))
	openTestPort(t, a, idx[1], WithFlowControl(FlowControlRTSCTS))

	require.NoError(t, p0.Throttle())
	params, _ := p0.LineParams()
	hup := params
	hup.BaudRate = 0
	require.NoError(t, p0.SetLineParams(hup))
	require.NoError(t, p0.SetLineParams(params))

	mcr, _, _ := a.ModemLines(idx[0])
	assert.Equal(t, LineDTR, mcr, "RTS stays down while throttled")
}

func TestSetLineParamsInvalid(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p := openTestPort(t, a, idx[0])

	params, _ := p.LineParams()
	params.DataBits = 9
	assert.ErrorIs(t, p.SetLineParams(params), ErrInvalidConfig)
	params.DataBits = 8
	params.BaudRate = 12345
	assert.ErrorIs(t, p.SetLineParams(params), ErrInvalidBaudRate)
}

func TestSerialPortCompatibility(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)

	var sp serial.Port = openTestPort(t, a, idx[0])
	peer := openTestPort(t, a, idx[1])

	require.NoError(t, sp.SetMode(&serial.Mode{BaudRate: 9600, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.OneStopBit}))
	require.NoError(t, peer.SetMode(&serial.Mode{BaudRate: 9600, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.OneStopBit}))

	bits, err := sp.GetModemStatusBits()
	require.NoError(t, err)
	assert.Equal(t, &serial.ModemStatusBits{CTS: true, DSR: true, DCD: true}, bits)

	require.NoError(t, sp.SetRTS(false))
	cts, err := peer.GetCTSStatus()
	require.NoError(t, err)
	assert.False(t, cts)

	require.NoError(t, sp.Drain())
	require.NoError(t, sp.ResetOutputBuffer())
	require.NoError(t, sp.Close())
}

func TestBreak(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0 := openTestPort(t, a, idx[0])
	p1 := openTestPort(t, a, idx[1], WithReadTimeout(0))

	require.NoError(t, p0.SetBreak(true))
	require.NoError(t, p0.SetBreak(true), "asserting twice is a no-op")

	_, err := p0.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrBreakActive)

	buf := make([]byte, 4)
	n, err := p1.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, buf[:n])

	c, _ := p1.Counters()
	assert.EqualValues(t, 1, c.Break)

	require.NoError(t, p0.SetBreak(false))
	require.NoError(t, p0.Break(time.Millisecond))
	c, _ = p1.Counters()
	assert.EqualValues(t, 2, c.Break)

	_, err = p0.Write([]byte("x"))
	assert.NoError(t, err)
}

func TestHangup(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0 := openTestPort(t, a, idx[0])

	done := make(chan error, 1)
	go func() {
		_, err := p0.Read(make([]byte, 4))
		done <- err
	}()

	require.NoError(t, a.Hangup(idx[0]))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrHangup)
	case <-time.After(time.Second):
		t.Fatal("blocked read was not woken by hangup")
	}

	_, err := p0.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrHangup)
	_, msr, _ := a.ModemLines(idx[1])
	assert.Zero(t, msr)
}

func TestCarrierWait(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateNullModem(PairSpec{
		A: EndpointSpec{Index: AutoIndex, RTSMap: StandardRTSMap, DTRMap: StandardDTRMap},
		B: StandardEndpoint(AutoIndex),
	})
	require.NoError(t, err)

	opened := make(chan Port, 1)
	go func() {
		p, err := a.Open(idx[1], WithCarrierWait())
		if err != nil {
			opened <- nil
			return
		}
		opened <- p
	}()

	select {
	case <-opened:
		t.Fatal("open returned before carrier was detected")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, a.SetModemLines(idx[0], LineDTR, 0))
	select {
	case p := <-opened:
		require.NotNil(t, p)
		p.Close()
	case <-time.After(time.Second):
		t.Fatal("open was not woken by DCD")
	}
}

func TestCarrierWaitCancelled(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateNullModem(PairSpec{
		A: EndpointSpec{Index: AutoIndex},
		B: EndpointSpec{Index: AutoIndex},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = a.OpenContext(ctx, idx[0], WithCarrierWait())
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	info, err := a.Info(idx[0])
	require.NoError(t, err)
	assert.False(t, info.Open, "a failed open leaves no session behind")
}

func TestHardwareFlowControl(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0 := openTestPort(t, a, idx[0], WithFlowControl(FlowControlRTSCTS), WithCTSTimeout(20*time.Millisecond))
	p1 := openTestPort(t, a, idx[1], WithFlowControl(FlowControlRTSCTS))

	require.NoError(t, p1.Throttle())
	_, err := p0.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrCTSTimeout)

	done := make(chan error, 1)
	go func() {
		_, err := p0.WriteContext(context.Background(), []byte("go"))
		done <- err
	}()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p1.Unthrottle())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("writer was not released by CTS")
	}
}

func TestStopStart(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0 := openTestPort(t, a, idx[0], WithCTSTimeout(10*time.Millisecond))

	require.NoError(t, p0.Stop())
	_, err := p0.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrCTSTimeout)
	require.NoError(t, p0.Start())
	_, err = p0.Write([]byte("x"))
	assert.NoError(t, err)
}

func TestResetInputBuffer(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateLoopback(StandardEndpoint(AutoIndex))
	require.NoError(t, err)
	p := openTestPort(t, a, idx, WithReadTimeout(0))

	_, err = p.Write([]byte("stale"))
	require.NoError(t, err)
	require.NoError(t, p.ResetInputBuffer())

	n, err := p.Read(make([]byte, 8))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestPortAfterDestroy(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	p0 := openTestPort(t, a, idx[0])

	require.NoError(t, a.Destroy(idx[1]))

	_, err := p0.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrDeviceGone)
	_, err = p0.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrDeviceGone)
	assert.NoError(t, p0.Close())
}
