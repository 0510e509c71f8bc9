package vserial

import (
	"time"

	"go.bug.st/serial"
)

// Config holds the configuration applied when an endpoint is opened
type Config struct {
	BaudRate       int
	DataBits       int
	StopBits       int
	Parity         Parity
	FlowControl    FlowControl
	HangupOnClose  bool          // drop DTR/RTS when the last session closes (HUPCL)
	CTSTimeout     time.Duration // how long Write waits for a paused transmitter, 0 waits forever
	ReadTimeout    time.Duration // serial.NoTimeout blocks, 0 polls
	RxBufferSize   int
	WaitForCarrier bool
	InitialRTS     *bool
	InitialDTR     *bool
}

// Option is a functional option for configuring a port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:      115200,
		DataBits:      8,
		StopBits:      1,
		Parity:        ParityNone,
		FlowControl:   FlowControlNone,
		HangupOnClose: true,
		CTSTimeout:    500 * time.Millisecond,
		ReadTimeout:   serial.NoTimeout,
		RxBufferSize:  64 * 1024,
	}
}

func (c Config) lineParams() LineParams {
	return LineParams{
		BaudRate:      c.BaudRate,
		DataBits:      c.DataBits,
		StopBits:      c.StopBits,
		Parity:        c.Parity,
		FlowControl:   c.FlowControl,
		HangupOnClose: c.HangupOnClose,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		if fc < FlowControlNone || fc > FlowControlXONXOFF {
			return ErrInvalidConfig
		}
		c.FlowControl = fc
		return nil
	}
}

// WithHangupOnClose controls whether closing the last session drops DTR and RTS
func WithHangupOnClose(enabled bool) Option {
	return func(c *Config) error {
		c.HangupOnClose = enabled
		return nil
	}
}

// WithCTSTimeout sets how long a write waits for a paused transmitter
func WithCTSTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.CTSTimeout = timeout
		return nil
	}
}

// WithReadTimeout sets the read timeout. serial.NoTimeout blocks until data
// arrives, zero returns immediately.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 && timeout != serial.NoTimeout {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithRxBufferSize sets the receive buffer size of the session
func WithRxBufferSize(size int) Option {
	return func(c *Config) error {
		if size <= 0 {
			return ErrInvalidConfig
		}
		c.RxBufferSize = size
		return nil
	}
}

// WithCarrierWait makes Open block until the endpoint sees DCD asserted
func WithCarrierWait() Option {
	return func(c *Config) error {
		c.WaitForCarrier = true
		return nil
	}
}

// WithInitialRTS sets the RTS state applied after open
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// WithInitialDTR sets the DTR state applied after open
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}

// Registrar is the host transport layer endpoints are registered with when
// they are created and unregistered from when they are destroyed. Register
// runs after the endpoint is installed, so it may open it.
type Registrar interface {
	Register(a *Adapter, index int) error
	Unregister(index int)
}

// AdapterConfig holds the configuration of an Adapter
type AdapterConfig struct {
	Capacity  int
	Registrar Registrar
}

// AdapterOption is a functional option for configuring an Adapter
type AdapterOption func(*AdapterConfig) error

// MaxCapacity is the largest table the five digit index field can address.
const MaxCapacity = 100000

// DefaultAdapterConfig returns the default adapter configuration
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{Capacity: 64}
}

// WithCapacity sets the number of device slots
func WithCapacity(n int) AdapterOption {
	return func(c *AdapterConfig) error {
		if n <= 0 || n > MaxCapacity {
			return ErrInvalidConfig
		}
		c.Capacity = n
		return nil
	}
}

// WithRegistrar sets the transport layer endpoints are registered with
func WithRegistrar(r Registrar) AdapterOption {
	return func(c *AdapterConfig) error {
		c.Registrar = r
		return nil
	}
}
