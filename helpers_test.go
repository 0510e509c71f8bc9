package vserial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, opts ...AdapterOption) *Adapter {
	t.Helper()
	a, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func newStandardPair(t *testing.T, a *Adapter) [2]int {
	t.Helper()
	idx, err := a.CreateNullModem(PairSpec{A: StandardEndpoint(AutoIndex), B: StandardEndpoint(AutoIndex)})
	require.NoError(t, err)
	return idx
}

func openTestPort(t *testing.T, a *Adapter, index int, opts ...Option) Port {
	t.Helper()
	p, err := a.Open(index, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// testDevice returns the record at index for white-box assertions.
func testDevice(t *testing.T, a *Adapter, index int) *device {
	t.Helper()
	d, err := a.device(index)
	require.NoError(t, err)
	return d
}
