// Package ptybridge exposes adapter endpoints to the host as
// pseudo-terminals. Every registered endpoint gets a pty pair and a stable
// symlink <dir>/ttyV<index> pointing at the slave side, so ordinary serial
// programs can open it.
package ptybridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	vserial "github.com/allbin/go-vserial"
)

// Bridge is a vserial.Registrar backed by pseudo-terminals.
type Bridge struct {
	dir          string
	log          zerolog.Logger
	pollInterval time.Duration

	mu    sync.Mutex
	links map[int]*link
}

var _ vserial.Registrar = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithPollInterval sets how often the slave termios is checked for changes
// made by the program holding the pty.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

// WithLogger sets the bridge logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) {
		b.log = l.With().Str("component", "ptybridge").Logger()
	}
}

// New returns a bridge that places its links in dir, creating it if needed.
func New(dir string, opts ...Option) (*Bridge, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create link directory: %w", err)
	}
	b := &Bridge{
		dir:          dir,
		log:          zerolog.Nop(),
		pollInterval: 100 * time.Millisecond,
		links:        make(map[int]*link),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Path returns the link path of the endpoint at index.
func (b *Bridge) Path(index int) string {
	return vserial.PortPath(b.dir, index)
}

// Register creates the pty for the endpoint at index, opens the endpoint
// and starts moving bytes between the two.
func (b *Bridge) Register(a *vserial.Adapter, index int) error {
	master, tty, err := pty.Open()
	if err != nil {
		return fmt.Errorf("open pty: %w", err)
	}
	l := &link{
		a:      a,
		index:  index,
		master: master,
		tty:    tty,
		path:   b.Path(index),
		poll:   b.pollInterval,
		log:    b.log.With().Int("index", index).Str("tty", tty.Name()).Logger(),
	}

	fail := func(err error) error {
		master.Close()
		tty.Close()
		return err
	}

	if err := makeRaw(tty); err != nil {
		return fail(err)
	}
	if err := replaceLink(tty.Name(), l.path); err != nil {
		return fail(err)
	}
	p, err := a.Open(index)
	if err != nil {
		os.Remove(l.path)
		return fail(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.setPort(p)
	l.mirror(p)

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		l.fromHost(ctx)
	}()
	go func() {
		defer l.wg.Done()
		l.sessions(ctx, p)
	}()

	b.mu.Lock()
	b.links[index] = l
	b.mu.Unlock()

	l.log.Info().Str("link", l.path).Msg("endpoint registered")
	return nil
}

// Unregister stops the link for index and removes its symlink.
func (b *Bridge) Unregister(index int) {
	b.mu.Lock()
	l := b.links[index]
	delete(b.links, index)
	b.mu.Unlock()
	if l == nil {
		return
	}
	l.stop()
	l.log.Info().Msg("endpoint unregistered")
}

// Close stops every remaining link.
func (b *Bridge) Close() error {
	b.mu.Lock()
	links := b.links
	b.links = make(map[int]*link)
	b.mu.Unlock()
	for _, l := range links {
		l.stop()
	}
	return nil
}

// replaceLink points path at target, replacing a stale symlink.
func replaceLink(target, path string) error {
	if fi, err := os.Lstat(path); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("%s exists and is not a symlink", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove stale link: %w", err)
		}
	}
	if err := os.Symlink(target, path); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// makeRaw puts the terminal into raw mode so bytes pass unmodified and the
// line discipline does not echo them back to the master.
func makeRaw(f *os.File) error {
	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

type link struct {
	a      *vserial.Adapter
	index  int
	master *os.File
	tty    *os.File
	path   string
	poll   time.Duration
	log    zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	port  vserial.Port
	cflag uint32
	iflag uint32
}

func (l *link) setPort(p vserial.Port) {
	l.mu.Lock()
	l.port = p
	l.mu.Unlock()
}

func (l *link) current() vserial.Port {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

func (l *link) stop() {
	l.cancel()
	// expiring the deadline and closing the master unblocks fromHost and
	// any pending write to it
	l.master.SetDeadline(time.Now())
	l.master.Close()
	l.wg.Wait()
	l.tty.Close()
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.log.Warn().Err(err).Msg("remove link")
	}
}

// fromHost copies what the pty client writes into the endpoint.
func (l *link) fromHost(ctx context.Context) {
	buf := make([]byte, 4096)
	for {
		n, err := l.master.Read(buf)
		if n > 0 {
			if p := l.current(); p != nil {
				if _, werr := p.WriteContext(ctx, buf[:n]); werr != nil {
					if errors.Is(werr, vserial.ErrDeviceGone) || ctx.Err() != nil {
						return
					}
					l.log.Debug().Err(werr).Msg("dropped host data")
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// sessions serves the open port p and reopens the endpoint after a forced
// hangup, until the endpoint is destroyed or the link stops.
func (l *link) sessions(ctx context.Context, p vserial.Port) {
	for {
		err := l.serve(ctx, p)
		l.setPort(nil)
		p.Close()
		if !errors.Is(err, vserial.ErrHangup) || ctx.Err() != nil {
			return
		}
		l.log.Debug().Msg("session hung up, reopening")
		p, err = l.a.OpenContext(ctx, l.index)
		if err != nil {
			return
		}
		l.setPort(p)
		l.resetMirror()
		l.mirror(p)
	}
}

// serve copies endpoint data to the pty client while a second goroutine
// mirrors termios changes onto the port.
func (l *link) serve(ctx context.Context, p vserial.Port) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.mirror(p)
			}
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	buf := make([]byte, 4096)
	for {
		n, err := p.ReadContext(ctx, buf)
		if n > 0 {
			if _, werr := l.master.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

func (l *link) resetMirror() {
	l.mu.Lock()
	l.cflag, l.iflag = 0, 0
	l.mu.Unlock()
}

// mirror applies the slave termios to p when it changed since last time.
func (l *link) mirror(p vserial.Port) {
	t, err := unix.IoctlGetTermios(int(l.tty.Fd()), unix.TCGETS)
	if err != nil {
		l.log.Debug().Err(err).Msg("get termios")
		return
	}
	l.mu.Lock()
	same := t.Cflag == l.cflag && t.Iflag == l.iflag
	l.cflag, l.iflag = t.Cflag, t.Iflag
	l.mu.Unlock()
	if same {
		return
	}

	params, err := vserial.LineParamsFromTermios(t)
	if err != nil {
		l.log.Warn().Err(err).Msg("unsupported termios, keeping line parameters")
		return
	}
	if err := p.SetLineParams(params); err != nil {
		l.log.Warn().Err(err).Str("params", params.String()).Msg("apply termios")
		return
	}
	l.log.Debug().Str("params", params.String()).Msg("line parameters mirrored")
}
