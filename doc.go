// Package vserial is a software-only multi-port serial adapter. It exposes
// virtual endpoints wired as null-modem pairs or loopbacks and emulates the
// RS-232 handshake lines between them.
//
// Endpoints live in a fixed-capacity device table. Each endpoint drives its
// RTS and DTR outputs into the status inputs (CTS, DCD, DSR, RI) of the far
// end of its cable through a pin map, counts status interrupts the way a
// UART does, and carries bytes only when both ends agree on baud rate and
// frame.
//
// # Basic Usage
//
// Create a standard null-modem pair and talk across it:
//
//	a, err := vserial.New(vserial.WithCapacity(16))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
//	idx, err := a.CreateNullModem(vserial.PairSpec{
//	    A: vserial.StandardEndpoint(vserial.AutoIndex),
//	    B: vserial.StandardEndpoint(vserial.AutoIndex),
//	})
//
//	left, err := a.Open(idx[0])
//	right, err := a.Open(idx[1])
//
//	n, err := left.Write([]byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = right.Read(buffer)
//
// # Control Protocol
//
// Devices can also be created and destroyed with the textual control
// protocol:
//
//	res, err := a.Exec("gennm#00000#00001#7-8,x,x,x#4-1,6,x,x#7-8,x,x,x#4-1,6,x,x#y#y")
//	res, err = a.Exec("genlb#00002#xxxxx#7-8,x,x,x#4-1,6,x,x#x-x,x,x,x#x-x,x,x,x#y#x")
//	res, err = a.Exec("del#00000")
//	res, err = a.Exec("del#xxxxx")
//
// Pin map fields read <primary>-<m1>,<m2>,<m3>,<m4> where the primary is 7
// (RTS) or 4 (DTR) and each mN is 8 (CTS), 1 (DCD), 6 (DSR), 9 (RI) or x.
//
// # Configuration Options
//
// Use functional options when opening an endpoint:
//
//	port, err := a.Open(idx[0],
//	    vserial.WithBaudRate(9600),
//	    vserial.WithFlowControl(vserial.FlowControlRTSCTS),
//	    vserial.WithCTSTimeout(200*time.Millisecond),
//	    vserial.WithCarrierWait(),
//	)
//
// # Modem Signals
//
//	signals, err := port.GetModemSignals()
//	err = port.SetRTS(false)
//
//	// Wait for the far end to move a line
//	signals, changed, err := port.WaitForSignalChange(
//	    vserial.SignalCTS|vserial.SignalDCD,
//	    5*time.Second,
//	)
//
// # go.bug.st/serial Compatibility
//
// Port embeds go.bug.st/serial's Port interface, so a virtual endpoint can
// be passed to code written against that library.
//
// # Error Handling
//
// Use errors.Is() for error type checking:
//
//	if errors.Is(err, vserial.ErrDeviceGone) {
//	    // the endpoint was destroyed under us
//	}
//
// ErrorCode maps any error to the short code used on the control channel.
//
// # Logging
//
// The package is silent by default. SetLogger installs a zerolog logger
// for diagnostics.
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - FlowControl: None
//   - HangupOnClose: true
//   - CTSTimeout: 500ms
//   - ReadTimeout: none (Read blocks)
//   - RxBufferSize: 64 KiB
package vserial
