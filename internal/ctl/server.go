package ctl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	vserial "github.com/allbin/go-vserial"
)

// maxRequest bounds a request line. The longest create command is well
// under this.
const maxRequest = 4096

// Server answers control requests against one adapter.
type Server struct {
	a   *vserial.Adapter
	log zerolog.Logger

	// ReadTimeout bounds how long a client may take to send its request.
	ReadTimeout time.Duration

	wg sync.WaitGroup
}

// NewServer returns a server for a.
func NewServer(a *vserial.Adapter, log zerolog.Logger) *Server {
	return &Server{
		a:           a,
		log:         log.With().Str("component", "ctl").Logger(),
		ReadTimeout: 5 * time.Second,
	}
}

// Listen creates the Unix socket at path, removing a stale socket left by
// a previous run.
func Listen(path string) (net.Listener, error) {
	if fi, err := os.Lstat(path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("%s exists and is not a socket", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is done, then closes ln and
// waits for in-flight requests to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.wg.Wait()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("control channel listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if s.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	}
	r := bufio.NewReaderSize(conn, maxRequest)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		s.log.Debug().Err(err).Msg("no request")
		return
	}
	conn.SetReadDeadline(time.Time{})

	// A client that hangs up abandons its request; this matters for wait.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		var b [1]byte
		conn.Read(b[:])
		cancel()
	}()

	reply := s.Handle(ctx, line)
	if _, err := fmt.Fprintf(conn, "%s\n", reply); err != nil {
		s.log.Debug().Err(err).Msg("write reply")
	}
}

// Handle runs one request line and returns the reply line without its
// terminator.
func (s *Server) Handle(ctx context.Context, line string) string {
	line = strings.TrimRight(line, "\r\n")
	payload, err := s.handle(ctx, line)
	if err != nil {
		s.log.Debug().Str("request", line).Err(err).Msg("request failed")
		return formatError(err)
	}
	s.log.Debug().Str("request", line).Str("reply", payload).Msg("request done")
	return formatOK(payload)
}

func (s *Server) handle(ctx context.Context, line string) (string, error) {
	fields := strings.Split(line, sep)
	verb := fields[0]

	switch verb {
	case "gennm", "genlb", "del":
		res, err := s.a.Exec(line)
		if err != nil {
			return "", err
		}
		return res.String(), nil

	case VerbQuery:
		return s.a.Status(), nil

	case VerbList:
		filter := vserial.FilterAll
		if len(fields) > 1 {
			f, err := vserial.ParseDeviceFilter(fields[1])
			if err != nil {
				return "", err
			}
			filter = f
		}
		return marshal(s.a.List(filter))

	case VerbInfo:
		if err := arity(fields, 2); err != nil {
			return "", err
		}
		idx, err := index(fields[1])
		if err != nil {
			return "", err
		}
		info, err := s.a.Info(idx)
		if err != nil {
			return "", err
		}
		return marshal(info)

	case VerbAttr:
		if err := arity(fields, 3); err != nil {
			return "", err
		}
		idx, err := index(fields[1])
		if err != nil {
			return "", err
		}
		return s.a.Attr(idx, fields[2])

	case VerbEvent:
		if err := arity(fields, 3); err != nil {
			return "", err
		}
		idx, err := index(fields[1])
		if err != nil {
			return "", err
		}
		if len(fields[2]) != 1 {
			return "", &vserial.CommandError{Field: "event", Value: fields[2], Err: vserial.ErrInvalidCommand}
		}
		return "", s.a.InjectFault(idx, fields[2][0])

	case VerbHup:
		if err := arity(fields, 2); err != nil {
			return "", err
		}
		idx, err := index(fields[1])
		if err != nil {
			return "", err
		}
		return "", s.a.Hangup(idx)

	case VerbMctl:
		if err := arity(fields, 4); err != nil {
			return "", err
		}
		idx, err := index(fields[1])
		if err != nil {
			return "", err
		}
		set, err := lineMask("set", fields[2])
		if err != nil {
			return "", err
		}
		clr, err := lineMask("clear", fields[3])
		if err != nil {
			return "", err
		}
		if err := s.a.SetModemLines(idx, set, clr); err != nil {
			return "", err
		}
		mcr, msr, err := s.a.ModemLines(idx)
		if err != nil {
			return "", err
		}
		return mcr.String() + sep + msr.String(), nil

	case VerbWait:
		if err := arity(fields, 3); err != nil {
			return "", err
		}
		idx, err := index(fields[1])
		if err != nil {
			return "", err
		}
		mask, err := vserial.ParseSignalMask(fields[2])
		if err != nil {
			return "", &vserial.CommandError{Field: "signals", Value: fields[2], Err: err}
		}
		changed, err := s.a.WaitForLineChange(ctx, idx, mask)
		if err != nil {
			return "", err
		}
		return changed.String(), nil
	}

	return "", &vserial.CommandError{Field: "command", Value: verb, Err: vserial.ErrInvalidCommand}
}

func arity(fields []string, n int) error {
	if len(fields) != n {
		return &vserial.CommandError{
			Field: fields[0],
			Value: strings.Join(fields, sep),
			Err:   fmt.Errorf("%w: want %d fields, got %d", vserial.ErrInvalidCommand, n, len(fields)),
		}
	}
	return nil
}

func index(s string) (int, error) {
	idx, err := vserial.ParseIndex(s)
	if err != nil {
		return 0, err
	}
	if idx == vserial.AutoIndex {
		return 0, &vserial.CommandError{Field: "index", Value: s, Err: vserial.ErrInvalidCommand}
	}
	return idx, nil
}

func lineMask(field, s string) (vserial.LineMask, error) {
	m, err := vserial.ParseLineMask(s)
	if err != nil || m&^vserial.ControlLines != 0 {
		return 0, &vserial.CommandError{Field: field, Value: s, Err: vserial.ErrInvalidCommand}
	}
	return m, nil
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", vserial.ErrIO, err)
	}
	return string(b), nil
}
