//go:build linux || darwin

package process

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// StatusKind identifies what an ExitStatus describes.
type StatusKind int

const (
	// StatusRunning means the child has not terminated.
	StatusRunning StatusKind = iota
	// StatusCode means the child exited normally with Value as its code.
	StatusCode
	// StatusSignal means the child was killed by signal Value.
	StatusSignal
	// StatusStopped means the child was stopped by signal Value.
	StatusStopped
)

// String returns a human-readable kind name.
func (k StatusKind) String() string {
	switch k {
	case StatusRunning:
		return "running"
	case StatusCode:
		return "exited"
	case StatusSignal:
		return "signaled"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ExitStatus is the result of a reap attempt.
type ExitStatus struct {
	Kind  StatusKind
	Value int
}

// Running returns the status of a live child.
func Running() ExitStatus {
	return ExitStatus{Kind: StatusRunning}
}

// Code returns the status of a child that exited with code.
func Code(code int) ExitStatus {
	return ExitStatus{Kind: StatusCode, Value: code}
}

// Signaled returns the status of a child killed by sig.
func Signaled(sig int) ExitStatus {
	return ExitStatus{Kind: StatusSignal, Value: sig}
}

// Stopped returns the status of a child stopped by sig.
func Stopped(sig int) ExitStatus {
	return ExitStatus{Kind: StatusStopped, Value: sig}
}

// Success reports whether the child exited with code 0.
func (s ExitStatus) Success() bool {
	return s.Kind == StatusCode && s.Value == 0
}

// ExitCode returns the exit code if the child exited normally.
func (s ExitStatus) ExitCode() (int, bool) {
	if s.Kind != StatusCode {
		return 0, false
	}
	return s.Value, true
}

// Signal returns the signal number if the child was killed by a signal.
func (s ExitStatus) Signal() (int, bool) {
	if s.Kind != StatusSignal {
		return 0, false
	}
	return s.Value, true
}

// IsRunning reports whether the child is still alive.
func (s ExitStatus) IsRunning() bool {
	return s.Kind == StatusRunning
}

// IsTerminal reports whether the status is final. A stopped child may
// still be continued, so only Code and Signal are terminal.
func (s ExitStatus) IsTerminal() bool {
	return s.Kind == StatusCode || s.Kind == StatusSignal
}

// String returns a human-readable status.
func (s ExitStatus) String() string {
	switch s.Kind {
	case StatusRunning:
		return "running"
	case StatusCode:
		return fmt.Sprintf("exit code %d", s.Value)
	case StatusSignal:
		return "killed by " + signalName(s.Value)
	case StatusStopped:
		return "stopped by " + signalName(s.Value)
	default:
		return s.Kind.String()
	}
}

func signalName(sig int) string {
	if name := unix.SignalName(syscall.Signal(sig)); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", sig)
}

// statusFromWait converts a raw wait status.
func statusFromWait(ws unix.WaitStatus) ExitStatus {
	switch {
	case ws.Exited():
		return Code(ws.ExitStatus())
	case ws.Signaled():
		return Signaled(int(ws.Signal()))
	case ws.Stopped():
		return Stopped(int(ws.StopSignal()))
	default:
		// Continued, or a status we do not distinguish.
		return Running()
	}
}
