package vserial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSignalMaskLines(t *testing.T) {
	tests := []struct {
		mask SignalMask
		want LineMask
	}{
		{SignalCTS, unix.TIOCM_CTS},
		{SignalDSR, unix.TIOCM_DSR},
		{SignalRI, unix.TIOCM_RNG},
		{SignalDCD, unix.TIOCM_CAR},
		{SignalCTS | SignalDCD, unix.TIOCM_CTS | unix.TIOCM_CAR},
		{SignalAll, StatusLines},
	}

	for _, tt := range tests {
		t.Run(tt.mask.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mask.Lines())
		})
	}
}

func TestDetectSignalChanges(t *testing.T) {
	tests := []struct {
		name     string
		old, new LineMask
		want     SignalMask
	}{
		{"unchanged", LineCTS | LineDSR, LineCTS | LineDSR, 0},
		{"carrier up", 0, LineDCD, SignalDCD},
		{"ring down", LineRI, 0, SignalRI},
		{"standard dtr raise", LineCTS, LineCTS | StandardDTRMap, SignalDSR | SignalDCD},
		{"control lines ignored", 0, LineRTS | LineDTR, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectSignalChanges(tt.old, tt.new))
		})
	}
}

func TestSignalMaskParse(t *testing.T) {
	mask, err := ParseSignalMask("DCD, cts")
	require.NoError(t, err)
	assert.Equal(t, SignalCTS|SignalDCD, mask)
	assert.Equal(t, "cts,dcd", mask.String())

	_, err = ParseSignalMask("cts,rts")
	assert.ErrorIs(t, err, ErrInvalidSignalMask)

	assert.Equal(t, "-", SignalMask(0).String())
}

func TestInitialLineOptions(t *testing.T) {
	for _, state := range []bool{true, false} {
		config := DefaultConfig()
		require.NoError(t, WithInitialRTS(state)(&config))
		require.NoError(t, WithInitialDTR(!state)(&config))
		require.NotNil(t, config.InitialRTS)
		require.NotNil(t, config.InitialDTR)
		assert.Equal(t, state, *config.InitialRTS)
		assert.Equal(t, !state, *config.InitialDTR)
	}
}

func TestInitialLinesAppliedOnOpen(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)

	p := openTestPort(t, a, idx[0], WithInitialRTS(true), WithInitialDTR(false))

	signals, err := p.GetModemSignals()
	require.NoError(t, err)
	assert.True(t, signals.RTS)
	assert.False(t, signals.DTR)

	_, msr, err := a.ModemLines(idx[1])
	require.NoError(t, err)
	assert.Equal(t, LineCTS, msr)
}

func TestModemSignalsOnClosedPort(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)

	p, err := a.Open(idx[0])
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.GetModemSignals()
	assert.ErrorIs(t, err, ErrPortClosed)
	assert.ErrorIs(t, p.SetRTS(true), ErrPortClosed)
	_, err = p.GetRTS()
	assert.ErrorIs(t, err, ErrPortClosed)
	_, _, err = p.WaitForSignalChangeContext(context.Background(), SignalCTS)
	assert.ErrorIs(t, err, ErrPortClosed)

	_, _, err = p.WaitForSignalChangeContext(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidSignalMask)
}
