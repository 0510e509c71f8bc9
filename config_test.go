package vserial

import (
	"testing"
	"time"

	"go.bug.st/serial"
)

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"150ms (valid)", 150 * time.Millisecond, false},
		{"25600ms (valid)", 25600 * time.Millisecond, false},
		{"no timeout (blocking)", serial.NoTimeout, false},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			opt := WithReadTimeout(tt.timeout)
			err := opt(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestWithRxBufferSize(t *testing.T) {
	config := DefaultConfig()
	if err := WithRxBufferSize(0)(&config); err != ErrInvalidConfig {
		t.Errorf("WithRxBufferSize(0) error = %v, want %v", err, ErrInvalidConfig)
	}
	if err := WithRxBufferSize(128)(&config); err != nil {
		t.Errorf("WithRxBufferSize(128) failed: %v", err)
	}
	if config.RxBufferSize != 128 {
		t.Errorf("RxBufferSize = %d, want 128", config.RxBufferSize)
	}
}

func TestAdapterOptions(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"single slot", 1, false},
		{"default sized", 64, false},
		{"largest addressable", MaxCapacity, false},
		{"zero", 0, true},
		{"too large", MaxCapacity + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(WithCapacity(tt.capacity))
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(WithCapacity(%d)) error = %v, wantErr %v", tt.capacity, err, tt.wantErr)
			}
			if err == nil && a.Capacity() != tt.capacity {
				t.Errorf("Capacity() = %d, want %d", a.Capacity(), tt.capacity)
			}
		})
	}
}
