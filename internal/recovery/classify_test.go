package recovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/termcore/internal/pty"
)

func ioErr(err error) error {
	return &pty.Error{Kind: pty.KindIO, Op: "write", Err: err}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Action
	}{
		{"broken pipe", ioErr(syscall.EPIPE), Recreate},
		{"connection aborted", ioErr(syscall.ECONNABORTED), Recreate},
		{"connection reset", ioErr(syscall.ECONNRESET), Recreate},
		{"unexpected eof", ioErr(io.ErrUnexpectedEOF), Recreate},
		{"eio", ioErr(syscall.EIO), Recreate},
		{"closed host", ioErr(pty.ErrClosed), Recreate},
		{"timed out", ioErr(os.ErrDeadlineExceeded), Retry},
		{"interrupted", ioErr(syscall.EINTR), Retry},
		{"would block", ioErr(syscall.EAGAIN), Retry},
		{"permission denied", ioErr(syscall.EACCES), Fail},
		{"not found", ioErr(syscall.ENOENT), Fail},
		{"pty creation", &pty.Error{Kind: pty.KindPtyCreation, Op: "open", Err: syscall.ENXIO}, Retry},
		{"shell not found", &pty.Error{Kind: pty.KindShellNotFound, Op: "resolve shell", Err: pty.ErrShellNotFound}, Fail},
		{"fork", &pty.Error{Kind: pty.KindFork, Op: "start", Err: syscall.EAGAIN}, Fail},
		{"environment setup", &pty.Error{Kind: pty.KindEnvironmentSetup, Op: "start", Err: syscall.ENOENT}, Fail},
		{"wrapped pty error", fmt.Errorf("session: %w", ioErr(syscall.EPIPE)), Recreate},
		{"bare errno", syscall.EPIPE, Recreate},
		{"context canceled", context.Canceled, Fail},
		{"context deadline", fmt.Errorf("spawn: %w", context.DeadlineExceeded), Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err, 1, 3))
		})
	}
}

func TestClassifyUnknownUsesThreshold(t *testing.T) {
	err := ioErr(errors.New("mystery"))

	assert.Equal(t, Retry, Classify(err, 1, 3))
	assert.Equal(t, Retry, Classify(err, 2, 3))
	assert.Equal(t, Recreate, Classify(err, 3, 3))
	assert.Equal(t, Recreate, Classify(err, 10, 3))
}

func TestClassifyNonPositiveThreshold(t *testing.T) {
	err := errors.New("mystery")

	assert.Equal(t, Recreate, Classify(err, 1, 0))
	assert.Equal(t, Retry, Classify(err, 0, 0))
}

func TestClassifyDeterministic(t *testing.T) {
	errs := []error{
		ioErr(syscall.EPIPE),
		ioErr(syscall.EINTR),
		ioErr(errors.New("odd")),
		&pty.Error{Kind: pty.KindShellNotFound, Err: pty.ErrShellNotFound},
	}
	for _, err := range errs {
		for failures := 0; failures < 6; failures++ {
			first := Classify(err, failures, 3)
			for i := 0; i < 5; i++ {
				assert.Equal(t, first, Classify(err, failures, 3))
			}
		}
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "retry", Retry.String())
	assert.Equal(t, "recreate", Recreate.String())
	assert.Equal(t, "fail", Fail.String())
	assert.Equal(t, "unknown(7)", Action(7).String())
}
