package ptybridge

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	vserial "github.com/allbin/go-vserial"
)

func newBridgedAdapter(t *testing.T) (*vserial.Adapter, *Bridge) {
	t.Helper()
	b, err := New(t.TempDir(), WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	a, err := vserial.New(vserial.WithCapacity(4), vserial.WithRegistrar(b))
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// openClient opens a bridged endpoint the way a serial program would.
func openClient(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	require.NoError(t, makeRaw(f))
	return f
}

func readWithTimeout(t *testing.T, r io.Reader, n int, timeout time.Duration) []byte {
	t.Helper()
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, n)
		_, err := io.ReadFull(r, buf)
		ch <- result{buf, err}
	}()
	select {
	case res := <-ch:
		require.NoError(t, res.err)
		return res.data
	case <-time.After(timeout):
		t.Fatalf("timeout reading %d bytes", n)
		return nil
	}
}

func TestRegisterCreatesLinks(t *testing.T) {
	a, b := newBridgedAdapter(t)
	idx, err := a.CreateNullModem(vserial.PairSpec{
		A: vserial.StandardEndpoint(vserial.AutoIndex),
		B: vserial.StandardEndpoint(vserial.AutoIndex),
	})
	require.NoError(t, err)

	ports, err := vserial.ListPorts(b.dir)
	require.NoError(t, err)
	assert.Equal(t, []string{b.Path(idx[0]), b.Path(idx[1])}, ports)

	// the bridge holds both ends open, so DTR-at-open has raised the lines
	info, err := a.Info(idx[1])
	require.NoError(t, err)
	assert.True(t, info.Open)
	assert.Equal(t, vserial.StandardRTSMap|vserial.StandardDTRMap, info.MSR)
}

func TestDataCrossesThePair(t *testing.T) {
	a, b := newBridgedAdapter(t)
	idx, err := a.CreateNullModem(vserial.PairSpec{
		A: vserial.StandardEndpoint(vserial.AutoIndex),
		B: vserial.StandardEndpoint(vserial.AutoIndex),
	})
	require.NoError(t, err)

	c0 := openClient(t, b.Path(idx[0]))
	c1 := openClient(t, b.Path(idx[1]))

	_, err = c0.Write([]byte("ping\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ping\n"), readWithTimeout(t, c1, 5, time.Second))

	_, err = c1.Write([]byte("pong"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pong"), readWithTimeout(t, c0, 4, time.Second))
}

func TestLoopbackEchoes(t *testing.T) {
	a, b := newBridgedAdapter(t)
	idx, err := a.CreateLoopback(vserial.EndpointSpec{Index: vserial.AutoIndex})
	require.NoError(t, err)

	c := openClient(t, b.Path(idx))
	_, err = c.Write([]byte{0x00, 0x7f, 0xff})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x7f, 0xff}, readWithTimeout(t, c, 3, time.Second))
}

func TestTermiosIsMirrored(t *testing.T) {
	a, b := newBridgedAdapter(t)
	idx, err := a.CreateLoopback(vserial.EndpointSpec{Index: vserial.AutoIndex})
	require.NoError(t, err)

	c := openClient(t, b.Path(idx))
	tio, err := unix.IoctlGetTermios(int(c.Fd()), unix.TCGETS)
	require.NoError(t, err)
	// the pty driver pins the character size to CS8 without parity, so
	// only speed, stop bits and flow control are exercised here
	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= unix.B9600 | unix.CSTOPB | unix.CRTSCTS
	require.NoError(t, unix.IoctlSetTermios(int(c.Fd()), unix.TCSETS, tio))

	want := vserial.LineParams{
		BaudRate:      9600,
		DataBits:      8,
		StopBits:      2,
		Parity:        vserial.ParityNone,
		FlowControl:   vserial.FlowControlRTSCTS,
		HangupOnClose: tio.Cflag&unix.HUPCL != 0,
	}
	require.Eventually(t, func() bool {
		info, err := a.Info(idx)
		return err == nil && info.Params == want
	}, time.Second, 5*time.Millisecond)
}

func TestUnregisterRemovesLink(t *testing.T) {
	a, b := newBridgedAdapter(t)
	idx, err := a.CreateLoopback(vserial.EndpointSpec{Index: vserial.AutoIndex})
	require.NoError(t, err)
	require.FileExists(t, b.Path(idx))

	require.NoError(t, a.Destroy(idx))
	_, err = os.Lstat(b.Path(idx))
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Unregister of an unknown index is a no-op
	b.Unregister(3)
}

func TestRegisterReplacesStaleLink(t *testing.T) {
	a, b := newBridgedAdapter(t)
	require.NoError(t, os.Symlink("/nonexistent", b.Path(0)))

	idx, err := a.CreateLoopback(vserial.EndpointSpec{Index: 0})
	require.NoError(t, err)
	target, err := os.Readlink(b.Path(idx))
	require.NoError(t, err)
	assert.NotEqual(t, "/nonexistent", target)
}

func TestRegisterFailureRollsBack(t *testing.T) {
	a, b := newBridgedAdapter(t)
	// a regular file where the link should go makes Register fail
	require.NoError(t, os.WriteFile(b.Path(1), nil, 0o644))

	_, err := a.CreateNullModem(vserial.PairSpec{
		A: vserial.StandardEndpoint(0),
		B: vserial.StandardEndpoint(1),
	})
	require.Error(t, err)

	_, err = os.Lstat(b.Path(0))
	assert.ErrorIs(t, err, os.ErrNotExist, "the first endpoint's link is removed on rollback")
	assert.Empty(t, a.List(vserial.FilterAll))
}
