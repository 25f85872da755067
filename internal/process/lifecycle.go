//go:build linux || darwin

package process

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ErrInvalidPid is returned for a pid that cannot name a child.
var ErrInvalidPid = errors.New("invalid pid")

// Manager reaps a single child process without blocking.
//
// Once a terminal status is observed it is cached, so later calls keep
// reporting it instead of the "no such child" that a second reap would
// produce. Manager is safe for concurrent use.
type Manager struct {
	pid          int
	pollInterval time.Duration
	logger       *zap.Logger

	mu    sync.Mutex
	final *ExitStatus
}

// NewManager creates a manager for the child pid.
func NewManager(pid int, opts ...Option) (*Manager, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("process manager: %w: %d", ErrInvalidPid, pid)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		pid:          pid,
		pollInterval: o.pollInterval,
		logger:       o.logger,
	}, nil
}

// Pid returns the managed pid.
func (m *Manager) Pid() int {
	return m.pid
}

// TryWait makes one non-blocking reap attempt.
//
// A child that was already reaped elsewhere reports Code(0).
func (m *Manager) TryWait() (ExitStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.final != nil {
		return *m.final, nil
	}

	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(m.pid, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			m.logger.Debug("child already reaped", zap.Int("pid", m.pid))
			return m.finish(Code(0)), nil
		case err != nil:
			return ExitStatus{}, fmt.Errorf("wait for pid %d: %w", m.pid, err)
		case wpid == 0:
			return Running(), nil
		}
		break
	}

	status := statusFromWait(ws)
	if status.IsTerminal() {
		m.logger.Debug("child exited",
			zap.Int("pid", m.pid),
			zap.Stringer("status", status))
		return m.finish(status), nil
	}
	return status, nil
}

func (m *Manager) finish(status ExitStatus) ExitStatus {
	m.final = &status
	return status
}

// IsRunning reports whether the child is still alive.
func (m *Manager) IsRunning() (bool, error) {
	status, err := m.TryWait()
	if err != nil {
		return false, err
	}
	return !status.IsTerminal(), nil
}

// WaitForExit polls until the child terminates or ctx is done.
func (m *Manager) WaitForExit(ctx context.Context) (ExitStatus, error) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		status, err := m.TryWait()
		if err != nil {
			return ExitStatus{}, err
		}
		if status.IsTerminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return ExitStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForExitTimeout is WaitForExit bounded by d. It returns false, and
// no error, when d elapses while the child is still alive.
func (m *Manager) WaitForExitTimeout(ctx context.Context, d time.Duration) (ExitStatus, bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	status, err := m.WaitForExit(waitCtx)
	switch {
	case err == nil:
		return status, true, nil
	case ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
		return Running(), false, nil
	default:
		return ExitStatus{}, false, err
	}
}

// Kill sends SIGKILL to the child unless it is already known to have
// terminated.
func (m *Manager) Kill() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.final != nil {
		return nil
	}
	if err := unix.Kill(m.pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill pid %d: %w", m.pid, err)
	}
	return nil
}
