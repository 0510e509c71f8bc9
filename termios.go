package vserial

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LineParamsFromTermios translates the termios a client configured on a
// host terminal into LineParams. A B0 speed yields BaudRate 0.
func LineParamsFromTermios(t *unix.Termios) (LineParams, error) {
	baud, err := baudRateFromFlag(t.Cflag & unix.CBAUD)
	if err != nil {
		return LineParams{}, fmt.Errorf("termios speed %#o: %w", t.Cflag&unix.CBAUD, err)
	}

	p := LineParams{
		BaudRate:      baud,
		StopBits:      1,
		Parity:        ParityNone,
		FlowControl:   FlowControlNone,
		HangupOnClose: t.Cflag&unix.HUPCL != 0,
	}

	switch t.Cflag & unix.CSIZE {
	case unix.CS5:
		p.DataBits = 5
	case unix.CS6:
		p.DataBits = 6
	case unix.CS7:
		p.DataBits = 7
	default:
		p.DataBits = 8
	}

	if t.Cflag&unix.CSTOPB != 0 {
		p.StopBits = 2
	}

	if t.Cflag&unix.PARENB != 0 {
		odd := t.Cflag&unix.PARODD != 0
		switch {
		case t.Cflag&unix.CMSPAR != 0 && odd:
			p.Parity = ParityMark
		case t.Cflag&unix.CMSPAR != 0:
			p.Parity = ParitySpace
		case odd:
			p.Parity = ParityOdd
		default:
			p.Parity = ParityEven
		}
	}

	switch {
	case t.Cflag&unix.CRTSCTS != 0:
		p.FlowControl = FlowControlRTSCTS
	case t.Iflag&(unix.IXON|unix.IXOFF) != 0:
		p.FlowControl = FlowControlXONXOFF
	}

	return p, nil
}
