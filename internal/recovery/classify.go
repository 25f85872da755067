package recovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/termcore/internal/pty"
)

// Action is what to do after a failed operation.
type Action int

const (
	// Retry waits and tries again on the same connection.
	Retry Action = iota
	// Recreate discards the connection; the next attempt respawns it.
	Recreate
	// Fail propagates the error without further attempts.
	Fail
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case Retry:
		return "retry"
	case Recreate:
		return "recreate"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("unknown(%d)", a)
	}
}

// Classify maps err to an action. The result depends only on err, the
// number of consecutive failures including this one, and threshold.
//
// Errors that are not *pty.Error are classified like I/O errors by the
// errno or sentinel they wrap. Context cancellation always fails.
func Classify(err error, consecutiveFailures, threshold int) Action {
	if err == nil {
		return Retry
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fail
	}

	if kind, ok := pty.KindOf(err); ok {
		switch kind {
		case pty.KindPtyCreation:
			return Retry
		case pty.KindShellNotFound, pty.KindFork, pty.KindEnvironmentSetup:
			return Fail
		}
	}
	return classifyIO(err, consecutiveFailures, threshold)
}

func classifyIO(err error, consecutiveFailures, threshold int) Action {
	switch pty.IOKindOf(err) {
	case pty.IOBrokenPipe, pty.IOConnectionAborted, pty.IOUnexpectedEOF:
		return Recreate
	case pty.IOTimedOut, pty.IOInterrupted, pty.IOWouldBlock:
		return Retry
	case pty.IOPermissionDenied, pty.IONotFound:
		return Fail
	default:
		if consecutiveFailures >= max(threshold, 1) {
			return Recreate
		}
		return Retry
	}
}
