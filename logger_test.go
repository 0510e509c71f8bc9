package vserial

import (
	"bytes"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(zerolog.Nop()) })

	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	a := newTestAdapter(t)
	_, err := a.CreateLoopback(StandardEndpoint(AutoIndex))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"component":"vserial"`)
	assert.Contains(t, buf.String(), "loopback created")
}

func TestSetLoggerWhileRunning(t *testing.T) {
	t.Cleanup(func() { SetLogger(zerolog.Nop()) })

	a := newTestAdapter(t)
	idx := newStandardPair(t, a)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			SetLogger(zerolog.Nop())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			assert.NoError(t, a.InjectFault(idx[0], FaultParity))
		}
	}()
	wg.Wait()

	_, err := a.Attr(idx[0], "evt")
	require.NoError(t, err)
}
