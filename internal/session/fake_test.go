//go:build linux || darwin

package session

import (
	"context"
	"sync"

	"github.com/dshills/termcore/internal/pty"
)

// fakeConn is a scripted Conn. Queued errors are returned, one per call,
// before the call succeeds.
type fakeConn struct {
	mu sync.Mutex

	pid       int
	reads     [][]byte
	readErrs  []error
	writeErrs []error
	resizeErr error

	written []byte
	resizes [][2]int
	closed  bool
}

func (c *fakeConn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &pty.Error{Kind: pty.KindIO, Op: "write", Err: pty.ErrClosed}
	}
	if len(c.writeErrs) > 0 {
		err := c.writeErrs[0]
		c.writeErrs = c.writeErrs[1:]
		return err
	}
	c.written = append(c.written, p...)
	return nil
}

func (c *fakeConn) TryRead() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.readErrs) > 0 {
		err := c.readErrs[0]
		c.readErrs = c.readErrs[1:]
		return nil, err
	}
	if len(c.reads) == 0 {
		return nil, nil
	}
	data := c.reads[0]
	c.reads = c.reads[1:]
	return data, nil
}

func (c *fakeConn) Resize(rows, cols int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resizes = append(c.resizes, [2]int{rows, cols})
	return c.resizeErr
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Pid() int {
	return c.pid
}

func (c *fakeConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.written)
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeSpawner hands out errs first, then conns, then fresh conns.
type fakeSpawner struct {
	mu    sync.Mutex
	errs  []error
	conns []*fakeConn
	sizes [][2]int
	made  []*fakeConn
}

func (s *fakeSpawner) Spawn(_ context.Context, rows, cols int) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes = append(s.sizes, [2]int{rows, cols})
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	var c *fakeConn
	if len(s.conns) > 0 {
		c = s.conns[0]
		s.conns = s.conns[1:]
	} else {
		c = &fakeConn{}
	}
	if c.pid == 0 {
		c.pid = 1000 + len(s.made)
	}
	s.made = append(s.made, c)
	return c, nil
}

func (s *fakeSpawner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sizes)
}

func (s *fakeSpawner) Made() []*fakeConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeConn(nil), s.made...)
}
