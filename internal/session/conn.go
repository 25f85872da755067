//go:build linux || darwin

package session

import (
	"context"
	"errors"
	"slices"

	"github.com/dshills/termcore/internal/pty"
)

// ErrClosed is returned by operations on a closed Resilient or Session.
var ErrClosed = errors.New("session is closed")

// Conn is a live connection to a shell.
type Conn interface {
	// Write writes all of p.
	Write(p []byte) error

	// TryRead returns available output, or nil when none arrived within
	// the connection's read timeout.
	TryRead() ([]byte, error)

	// Resize applies a new window size.
	Resize(rows, cols int) error

	// Close tears the connection down.
	Close() error

	// Pid returns the child's process id.
	Pid() int
}

var _ Conn = (*pty.Host)(nil)

// Spawner creates a connection sized rows by cols.
type Spawner func(ctx context.Context, rows, cols int) (Conn, error)

// HostSpawner returns a Spawner that starts a shell on a new pty.
func HostSpawner(opts ...pty.Option) Spawner {
	opts = slices.Clone(opts)
	return func(ctx context.Context, rows, cols int) (Conn, error) {
		host, err := pty.Spawn(ctx, append(slices.Clip(opts), pty.WithSize(rows, cols))...)
		if err != nil {
			return nil, err
		}
		return host, nil
	}
}
