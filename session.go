package vserial

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// session is the host side of an open endpoint: the receive buffer the data
// path delivers into and the hang-up state shared by every Port opened on
// the same device.
type session struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	limit    int
	hupErr   error
	hupCh    chan struct{}
	readable chan struct{}

	// guarded by the owning device's mu
	refs           int
	carrierWaiters int
}

func newSession(limit int) *session {
	return &session{
		limit:    limit,
		hupCh:    make(chan struct{}),
		readable: make(chan struct{}),
	}
}

// deliver appends p to the receive buffer and returns how many bytes fit
// and the buffered level afterwards. Bytes past the limit are dropped.
func (s *session) deliver(p []byte) (accepted, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hupErr != nil {
		return len(p), 0
	}
	accepted = len(p)
	if room := s.limit - s.buf.Len(); accepted > room {
		accepted = room
	}
	if accepted > 0 {
		s.buf.Write(p[:accepted])
		close(s.readable)
		s.readable = make(chan struct{})
	}
	return accepted, s.buf.Len()
}

// read copies buffered bytes into p. It blocks according to timeout:
// negative waits for data, zero polls. A timeout returns (0, 0, nil).
func (s *session) read(ctx context.Context, p []byte, timeout time.Duration) (n, level int, err error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		s.mu.Lock()
		if s.buf.Len() > 0 {
			n, _ = s.buf.Read(p)
			level = s.buf.Len()
			s.mu.Unlock()
			return n, level, nil
		}
		if s.hupErr != nil {
			err = s.hupErr
			s.mu.Unlock()
			return 0, 0, err
		}
		ready := s.readable
		s.mu.Unlock()

		if timeout == 0 {
			return 0, 0, nil
		}

		select {
		case <-ready:
		case <-s.hupCh:
		case <-expired:
			return 0, 0, nil
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
}

func (s *session) level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// flush discards unread input.
func (s *session) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
}

// hangup moves the session to its terminal state. The first cause wins.
func (s *session) hangup(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hupErr != nil {
		return
	}
	s.hupErr = cause
	close(s.hupCh)
}

func (s *session) hungUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hupErr
}
