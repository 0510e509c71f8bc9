package vserial

import (
	"fmt"

	"go.bug.st/serial"
	"golang.org/x/sys/unix"
)

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone    FlowControl = iota
	FlowControlCTS                 // transmitter honours CTS only
	FlowControlRTSCTS              // CTS gates transmit, RTS drops when throttled
	FlowControlXONXOFF             // software flow control
)

func (fc FlowControl) String() string {
	switch fc {
	case FlowControlNone:
		return "none"
	case FlowControlCTS:
		return "cts"
	case FlowControlRTSCTS:
		return "rtscts"
	case FlowControlXONXOFF:
		return "xonxoff"
	default:
		return "unknown"
	}
}

// hardware reports whether CTS gates the transmitter.
func (fc FlowControl) hardware() bool {
	return fc == FlowControlCTS || fc == FlowControlRTSCTS
}

// Parity represents the parity mode
type Parity = serial.Parity

const (
	ParityNone  = serial.NoParity
	ParityOdd   = serial.OddParity
	ParityEven  = serial.EvenParity
	ParityMark  = serial.MarkParity
	ParitySpace = serial.SpaceParity
)

// Software flow control characters.
const (
	XON  byte = 0x11
	XOFF byte = 0x13
)

// LineParams is the line configuration of one endpoint. BaudRate 0 is the
// B0 hang-up request and is never stored.
type LineParams struct {
	BaudRate      int
	DataBits      int
	StopBits      int
	Parity        Parity
	FlowControl   FlowControl
	HangupOnClose bool
}

// frameConfig is the part of LineParams both ends of a link must agree on
// for bytes to survive the cable.
type frameConfig struct {
	dataBits int
	stopBits int
	parity   Parity
	flow     FlowControl
}

func (p LineParams) frame() frameConfig {
	return frameConfig{
		dataBits: p.DataBits,
		stopBits: p.StopBits,
		parity:   p.Parity,
		flow:     p.FlowControl,
	}
}

// compatible reports whether bytes sent with p arrive intact at a receiver
// configured with q.
func (p LineParams) compatible(q LineParams) bool {
	return p.BaudRate == q.BaudRate && p.frame() == q.frame()
}

// Validate checks a non-B0 parameter set.
func (p LineParams) Validate() error {
	if _, err := getBaudRate(p.BaudRate); err != nil {
		return err
	}
	if p.DataBits < 5 || p.DataBits > 8 {
		return fmt.Errorf("%w: %d data bits", ErrInvalidConfig, p.DataBits)
	}
	if p.StopBits != 1 && p.StopBits != 2 {
		return fmt.Errorf("%w: %d stop bits", ErrInvalidConfig, p.StopBits)
	}
	if p.Parity < ParityNone || p.Parity > ParitySpace {
		return fmt.Errorf("%w: parity %d", ErrInvalidConfig, p.Parity)
	}
	if p.FlowControl < FlowControlNone || p.FlowControl > FlowControlXONXOFF {
		return fmt.Errorf("%w: flow control %d", ErrInvalidConfig, p.FlowControl)
	}
	return nil
}

// String renders the parameters as "115200 8N1 none".
func (p LineParams) String() string {
	return fmt.Sprintf("%d %d%s%d %s", p.BaudRate, p.DataBits, parityToString(p.Parity), p.StopBits, p.FlowControl)
}

func parityToString(p Parity) string {
	switch p {
	case ParityNone:
		return "N"
	case ParityEven:
		return "E"
	case ParityOdd:
		return "O"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// Mode converts the parameters into the go.bug.st/serial representation.
func (p LineParams) Mode() *serial.Mode {
	stop := serial.OneStopBit
	if p.StopBits == 2 {
		stop = serial.TwoStopBits
	}
	return &serial.Mode{
		BaudRate: p.BaudRate,
		DataBits: p.DataBits,
		Parity:   p.Parity,
		StopBits: stop,
	}
}

// withMode returns p updated from a go.bug.st/serial mode. Flow control and
// hang-up-on-close are not part of serial.Mode and are kept.
func (p LineParams) withMode(mode *serial.Mode) (LineParams, error) {
	out := p
	out.BaudRate = mode.BaudRate
	out.DataBits = mode.DataBits
	if out.DataBits == 0 {
		out.DataBits = 8
	}
	out.Parity = mode.Parity
	switch mode.StopBits {
	case serial.OneStopBit:
		out.StopBits = 1
	case serial.TwoStopBits:
		out.StopBits = 2
	default:
		return p, fmt.Errorf("%w: stop bits %v", ErrInvalidConfig, mode.StopBits)
	}
	return out, nil
}

// dataMask returns the mask a receiver applies to incoming bytes. Widths
// outside 5..8 pass bytes through unmodified.
func dataMask(bits int) byte {
	switch bits {
	case 5:
		return 0x1f
	case 6:
		return 0x3f
	case 7:
		return 0x7f
	default:
		return 0xff
	}
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	for _, b := range baudRates {
		if b.rate == rate {
			return b.flag, nil
		}
	}
	return 0, ErrInvalidBaudRate
}

// baudRateFromFlag converts a CBAUD value back to its integer rate. B0 maps
// to 0.
func baudRateFromFlag(flag uint32) (int, error) {
	if flag == unix.B0 {
		return 0, nil
	}
	for _, b := range baudRates {
		if b.flag == flag {
			return b.rate, nil
		}
	}
	return 0, ErrInvalidBaudRate
}

var baudRates = []struct {
	rate int
	flag uint32
}{
	{50, unix.B50},
	{75, unix.B75},
	{110, unix.B110},
	{134, unix.B134},
	{150, unix.B150},
	{200, unix.B200},
	{300, unix.B300},
	{600, unix.B600},
	{1200, unix.B1200},
	{1800, unix.B1800},
	{2400, unix.B2400},
	{4800, unix.B4800},
	{9600, unix.B9600},
	{19200, unix.B19200},
	{38400, unix.B38400},
	{57600, unix.B57600},
	{115200, unix.B115200},
	{230400, unix.B230400},
	{460800, unix.B460800},
	{500000, unix.B500000},
	{576000, unix.B576000},
	{921600, unix.B921600},
	{1000000, unix.B1000000},
	{1152000, unix.B1152000},
	{1500000, unix.B1500000},
	{2000000, unix.B2000000},
	{2500000, unix.B2500000},
	{3000000, unix.B3000000},
	{3500000, unix.B3500000},
	{4000000, unix.B4000000},
}
