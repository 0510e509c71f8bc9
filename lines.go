package vserial

import (
	"strings"

	"golang.org/x/sys/unix"
)

// LineMask is a set of modem control (MCR) or modem status (MSR) lines.
// Bit values match the TIOCM_* constants so masks can be handed to code
// that speaks TIOCMGET/TIOCMSET.
type LineMask int

const (
	LineDTR LineMask = unix.TIOCM_DTR
	LineRTS LineMask = unix.TIOCM_RTS
	LineCTS LineMask = unix.TIOCM_CTS
	LineDCD LineMask = unix.TIOCM_CAR
	LineRI  LineMask = unix.TIOCM_RNG
	LineDSR LineMask = unix.TIOCM_DSR

	// ControlLines are the outputs an endpoint drives.
	ControlLines = LineDTR | LineRTS
	// StatusLines are the inputs driven by the far end of the cable.
	StatusLines = LineCTS | LineDCD | LineDSR | LineRI
)

var lineNames = []struct {
	line LineMask
	name string
}{
	{LineRTS, "rts"},
	{LineDTR, "dtr"},
	{LineCTS, "cts"},
	{LineDSR, "dsr"},
	{LineDCD, "dcd"},
	{LineRI, "ri"},
}

// String lists the asserted lines, comma separated, or "-" when none are.
func (m LineMask) String() string {
	var names []string
	for _, ln := range lineNames {
		if m&ln.line != 0 {
			names = append(names, ln.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// ParseLineMask parses the format produced by LineMask.String.
func ParseLineMask(s string) (LineMask, error) {
	if s == "-" || s == "" {
		return 0, nil
	}
	var m LineMask
	for _, part := range strings.Split(s, ",") {
		found := false
		for _, ln := range lineNames {
			if strings.EqualFold(strings.TrimSpace(part), ln.name) {
				m |= ln.line
				found = true
				break
			}
		}
		if !found {
			return 0, ErrInvalidSignalMask
		}
	}
	return m, nil
}

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

func modemSignals(mcr, msr LineMask) ModemSignals {
	return ModemSignals{
		CTS: msr&LineCTS != 0,
		DSR: msr&LineDSR != 0,
		RI:  msr&LineRI != 0,
		DCD: msr&LineDCD != 0,
		RTS: mcr&LineRTS != 0,
		DTR: mcr&LineDTR != 0,
	}
}

// SignalMask identifies which signals to monitor
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD

	SignalAll = SignalCTS | SignalDSR | SignalRI | SignalDCD
)

var signalNames = []struct {
	sig  SignalMask
	name string
}{
	{SignalCTS, "cts"},
	{SignalDSR, "dsr"},
	{SignalRI, "ri"},
	{SignalDCD, "dcd"},
}

func (m SignalMask) String() string {
	var names []string
	for _, sn := range signalNames {
		if m&sn.sig != 0 {
			names = append(names, sn.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// ParseSignalMask parses a comma separated list of cts, dsr, ri and dcd.
func ParseSignalMask(s string) (SignalMask, error) {
	var mask SignalMask
	for _, part := range strings.Split(s, ",") {
		found := false
		for _, sn := range signalNames {
			if strings.EqualFold(strings.TrimSpace(part), sn.name) {
				mask |= sn.sig
				found = true
				break
			}
		}
		if !found {
			return 0, ErrInvalidSignalMask
		}
	}
	return mask, nil
}

// Lines returns the status register bits selected by the mask.
func (mask SignalMask) Lines() LineMask {
	var bits LineMask
	if mask&SignalCTS != 0 {
		bits |= LineCTS
	}
	if mask&SignalDSR != 0 {
		bits |= LineDSR
	}
	if mask&SignalRI != 0 {
		bits |= LineRI
	}
	if mask&SignalDCD != 0 {
		bits |= LineDCD
	}
	return bits
}

// detectSignalChanges compares old and new status registers to determine what changed
func detectSignalChanges(oldStatus, newStatus LineMask) SignalMask {
	var changed SignalMask
	if (oldStatus&LineCTS != 0) != (newStatus&LineCTS != 0) {
		changed |= SignalCTS
	}
	if (oldStatus&LineDSR != 0) != (newStatus&LineDSR != 0) {
		changed |= SignalDSR
	}
	if (oldStatus&LineRI != 0) != (newStatus&LineRI != 0) {
		changed |= SignalRI
	}
	if (oldStatus&LineDCD != 0) != (newStatus&LineDCD != 0) {
		changed |= SignalDCD
	}
	return changed
}
