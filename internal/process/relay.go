//go:build linux || darwin

package process

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SignalEvent is a signal observed by a Relay.
type SignalEvent int

const (
	// Interrupt is SIGINT.
	Interrupt SignalEvent = iota
	// Terminate is SIGTERM.
	Terminate
	// WindowChange is SIGWINCH.
	WindowChange
)

// String returns a human-readable event name.
func (e SignalEvent) String() string {
	switch e {
	case Interrupt:
		return "interrupt"
	case Terminate:
		return "terminate"
	case WindowChange:
		return "window change"
	default:
		return fmt.Sprintf("unknown(%d)", e)
	}
}

// Relay listens for SIGINT, SIGTERM and SIGWINCH delivered to this
// process. Interrupt and terminate are forwarded to the child; window
// changes are only reported, since the caller owns the new size.
type Relay struct {
	pid    int
	logger *zap.Logger

	interrupt chan os.Signal
	terminate chan os.Signal
	winch     chan os.Signal

	stopOnce sync.Once
}

// NewRelay registers the signal handlers for the child pid.
func NewRelay(pid int, opts ...Option) (*Relay, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("signal relay: %w: %d", ErrInvalidPid, pid)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Relay{
		pid:       pid,
		logger:    o.logger,
		interrupt: make(chan os.Signal, 1),
		terminate: make(chan os.Signal, 1),
		winch:     make(chan os.Signal, 1),
	}
	signal.Notify(r.interrupt, syscall.SIGINT)
	signal.Notify(r.terminate, syscall.SIGTERM)
	signal.Notify(r.winch, syscall.SIGWINCH)

	r.logger.Debug("signal relay started", zap.Int("pid", pid))
	return r, nil
}

// Pid returns the child pid signals are forwarded to.
func (r *Relay) Pid() int {
	return r.pid
}

// Next waits for the next signal. Interrupt and terminate are forwarded
// to the child before Next returns; a failed forward is logged and the
// event is still reported.
func (r *Relay) Next(ctx context.Context) (SignalEvent, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-r.interrupt:
		r.forward(Interrupt, syscall.SIGINT)
		return Interrupt, nil
	case <-r.terminate:
		r.forward(Terminate, syscall.SIGTERM)
		return Terminate, nil
	case <-r.winch:
		return WindowChange, nil
	}
}

func (r *Relay) forward(ev SignalEvent, sig syscall.Signal) {
	if err := r.Send(sig); err != nil {
		r.logger.Warn("forward signal",
			zap.Int("pid", r.pid),
			zap.Stringer("event", ev),
			zap.Error(err))
		return
	}
	r.logger.Debug("forwarded signal",
		zap.Int("pid", r.pid),
		zap.Stringer("event", ev))
}

// Send delivers sig to the child.
func (r *Relay) Send(sig syscall.Signal) error {
	if err := unix.Kill(r.pid, sig); err != nil {
		return fmt.Errorf("send %s to pid %d: %w", signalName(int(sig)), r.pid, err)
	}
	return nil
}

// Interrupt sends SIGINT to the child.
func (r *Relay) Interrupt() error {
	return r.Send(syscall.SIGINT)
}

// Terminate sends SIGTERM to the child.
func (r *Relay) Terminate() error {
	return r.Send(syscall.SIGTERM)
}

// Kill sends SIGKILL to the child.
func (r *Relay) Kill() error {
	return r.Send(syscall.SIGKILL)
}

// Stop unregisters the handlers. It is safe to call more than once.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		signal.Stop(r.interrupt)
		signal.Stop(r.terminate)
		signal.Stop(r.winch)
		r.logger.Debug("signal relay stopped", zap.Int("pid", r.pid))
	})
}
