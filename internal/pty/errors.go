package pty

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// Sentinel errors for the pty package.
var (
	// ErrShellNotFound is returned when no usable shell exists on disk.
	ErrShellNotFound = errors.New("shell not found")

	// ErrClosed is returned when operations are attempted on a closed host.
	ErrClosed = errors.New("pty host is closed")
)

// Kind identifies which stage of the host failed.
type Kind int

const (
	// KindPtyCreation is a failure of the kernel pseudo-terminal API.
	KindPtyCreation Kind = iota
	// KindFork is a failure to create the child process.
	KindFork
	// KindIO is a descriptor-level read, write or ioctl failure.
	KindIO
	// KindShellNotFound means no shell could be resolved.
	KindShellNotFound
	// KindEnvironmentSetup is a failure inside the child before the shell
	// image replaced it.
	KindEnvironmentSetup
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPtyCreation:
		return "pty creation"
	case KindFork:
		return "fork"
	case KindIO:
		return "io"
	case KindShellNotFound:
		return "shell not found"
	case KindEnvironmentSetup:
		return "environment setup"
	default:
		return "unknown"
	}
}

// Error is a failure of a host operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pty %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("pty %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IOKind classifies an I/O failure.
type IOKind int

const (
	IOOther IOKind = iota
	IOBrokenPipe
	IOConnectionAborted
	IOUnexpectedEOF
	IOTimedOut
	IOInterrupted
	IOWouldBlock
	IOPermissionDenied
	IONotFound
)

// String returns the string representation of the I/O kind.
func (k IOKind) String() string {
	switch k {
	case IOBrokenPipe:
		return "broken pipe"
	case IOConnectionAborted:
		return "connection aborted"
	case IOUnexpectedEOF:
		return "unexpected eof"
	case IOTimedOut:
		return "timed out"
	case IOInterrupted:
		return "interrupted"
	case IOWouldBlock:
		return "would block"
	case IOPermissionDenied:
		return "permission denied"
	case IONotFound:
		return "not found"
	default:
		return "other"
	}
}

// IOKindOf classifies err by the errno or sentinel in its chain. End of
// stream, including EIO from a master whose slave side is gone, is
// IOUnexpectedEOF; a closed host counts as an aborted connection.
func IOKindOf(err error) IOKind {
	switch {
	case err == nil:
		return IOOther
	case errors.Is(err, syscall.EPIPE):
		return IOBrokenPipe
	case errors.Is(err, syscall.ECONNABORTED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, ErrClosed), errors.Is(err, os.ErrClosed):
		return IOConnectionAborted
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF), errors.Is(err, syscall.EIO):
		return IOUnexpectedEOF
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, syscall.ETIMEDOUT):
		return IOTimedOut
	case errors.Is(err, syscall.EINTR):
		return IOInterrupted
	case errors.Is(err, syscall.EAGAIN):
		return IOWouldBlock
	case errors.Is(err, fs.ErrPermission):
		return IOPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return IONotFound
	default:
		return IOOther
	}
}
