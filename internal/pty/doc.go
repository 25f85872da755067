// Package pty runs an interactive shell on a pseudo-terminal.
//
// Spawn resolves a shell, opens a pty pair, starts the shell as a session
// leader with the slave as its controlling terminal, and returns a Host
// that owns the master side and the child:
//
//	h, err := pty.Spawn(ctx, pty.WithSize(24, 80))
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	_ = h.Write([]byte("echo hi\n"))
//	data, err := h.TryRead() // nil, nil when nothing arrived in time
//
// Failures are reported as *Error values whose Kind tells which stage
// failed; IOKindOf further classifies I/O failures for retry decisions.
package pty
