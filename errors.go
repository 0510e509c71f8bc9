package vserial

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound  = errors.New("virtual serial device not found")
	ErrDeviceGone      = errors.New("virtual serial device removed")
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrInvalidConfig   = errors.New("invalid serial configuration")
	ErrPortClosed      = errors.New("serial port is closed")
	ErrHangup          = errors.New("serial line hung up")
	ErrCTSTimeout      = errors.New("CTS timeout waiting for clear to send")
	ErrBreakActive     = errors.New("break condition active on line")
	ErrAdapterClosed   = errors.New("adapter is shut down")
	ErrIO              = errors.New("virtual serial I/O error")

	// Signal monitoring errors
	ErrSignalTimeout     = errors.New("timeout waiting for signal change")
	ErrInvalidSignalMask = errors.New("invalid signal mask")
	ErrInterrupted       = errors.New("wait interrupted")

	// Device table and control protocol errors
	ErrSlotExhausted   = errors.New("no free device slot")
	ErrSlotInUse       = errors.New("device slot already in use")
	ErrIndexOutOfRange = errors.New("device index out of range")
	ErrInvalidCommand  = errors.New("malformed control command")
	ErrInvalidPinMap   = errors.New("malformed pin map")
)

// CommandError describes which field of a control command was rejected.
type CommandError struct {
	Field string
	Value string
	Err   error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidCommand, "EINVAL"},
	{ErrInvalidPinMap, "EINVAL"},
	{ErrInvalidSignalMask, "EINVAL"},
	{ErrInvalidConfig, "EINVAL"},
	{ErrInvalidBaudRate, "EINVAL"},
	{ErrIndexOutOfRange, "ERANGE"},
	{ErrSlotInUse, "EBUSY"},
	{ErrSlotExhausted, "ENOSPC"},
	{ErrDeviceNotFound, "ENOENT"},
	{ErrInterrupted, "EINTR"},
	{ErrSignalTimeout, "ETIMEDOUT"},
}

// ErrorCode returns the control channel code for err. Anything not listed
// is reported as EIO.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "EIO"
}

// ErrorFromCode maps a control channel code back to its sentinel error.
func ErrorFromCode(code string) error {
	switch code {
	case "EINVAL":
		return ErrInvalidCommand
	case "ERANGE":
		return ErrIndexOutOfRange
	case "EBUSY":
		return ErrSlotInUse
	case "ENOSPC":
		return ErrSlotExhausted
	case "ENOENT":
		return ErrDeviceNotFound
	case "EINTR":
		return ErrInterrupted
	case "ETIMEDOUT":
		return ErrSignalTimeout
	default:
		return ErrIO
	}
}
