//go:build linux || darwin

package pty

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	creack "github.com/creack/pty"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	readBufferSize     = 4096
	defaultReadTimeout = time.Millisecond
	defaultRows        = 24
	defaultCols        = 80
)

// Host owns a pseudo-terminal and the shell running on its slave side.
//
// The master is duplicated into independent, non-blocking reader and
// writer handles registered with the runtime poller, so reads can be
// bounded by deadlines. Close sends SIGTERM to the child exactly once.
type Host struct {
	master *os.File
	reader *os.File
	writer *os.File

	cmd   *exec.Cmd
	pid   int
	shell string

	readTimeout time.Duration
	logger      *zap.Logger

	sizeMu sync.Mutex
	rows   int
	cols   int

	closeOnce sync.Once
	closed    atomic.Bool
	reap      bool
	reaped    chan struct{}
}

type spawnConfig struct {
	shell       string
	rows        int
	cols        int
	env         []string
	dir         string
	readTimeout time.Duration
	logger      *zap.Logger
	noReap      bool
}

// Option configures Spawn.
type Option func(*spawnConfig)

// WithShell sets the preferred shell path.
func WithShell(path string) Option {
	return func(c *spawnConfig) {
		c.shell = path
	}
}

// WithSize sets the initial window size.
func WithSize(rows, cols int) Option {
	return func(c *spawnConfig) {
		c.rows = rows
		c.cols = cols
	}
}

// WithEnv adds KEY=VALUE entries to the child environment.
func WithEnv(kv ...string) Option {
	return func(c *spawnConfig) {
		c.env = append(c.env, kv...)
	}
}

// WithDir sets the child working directory.
func WithDir(dir string) Option {
	return func(c *spawnConfig) {
		c.dir = dir
	}
}

// WithReadTimeout bounds how long TryRead waits for data.
func WithReadTimeout(d time.Duration) Option {
	return func(c *spawnConfig) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *spawnConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithoutReap leaves reaping the child to the caller, typically a
// process.Manager that needs the real exit status. Close then only
// signals the child.
func WithoutReap() Option {
	return func(c *spawnConfig) {
		c.noReap = true
	}
}

// Spawn opens a pseudo-terminal and starts a shell on it.
func Spawn(ctx context.Context, opts ...Option) (*Host, error) {
	cfg := spawnConfig{
		rows:        defaultRows,
		cols:        defaultCols,
		readTimeout: defaultReadTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.rows = max(cfg.rows, 1)
	cfg.cols = max(cfg.cols, 1)
	logger := cfg.logger

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shell, err := ResolveShell(cfg.shell)
	if err != nil {
		return nil, err
	}

	master, slave, err := creack.Open()
	if err != nil {
		return nil, newError(KindPtyCreation, "open", err)
	}
	logger.Debug("opened pty", zap.String("slave", slave.Name()))

	if err := creack.Setsize(master, winsize(cfg.rows, cfg.cols)); err != nil {
		_ = slave.Close()
		_ = master.Close()
		return nil, newError(KindPtyCreation, "set size", err)
	}

	spec := NewChildSpec(shell).WithEnv(cfg.env...).WithDir(cfg.dir)
	cmd := spec.Command(slave)
	startErr := cmd.Start()
	// The child holds its own copy; the master sees EOF once it exits.
	_ = slave.Close()
	if startErr != nil {
		_ = master.Close()
		return nil, newError(startErrorKind(startErr), "start", startErr)
	}

	reader, err := dupNonblocking(master, "pty-reader")
	if err != nil {
		_ = cmd.Process.Kill()
		_ = master.Close()
		go func() { _, _ = cmd.Process.Wait() }()
		return nil, newError(KindPtyCreation, "dup reader", err)
	}
	writer, err := dupNonblocking(master, "pty-writer")
	if err != nil {
		_ = cmd.Process.Kill()
		_ = reader.Close()
		_ = master.Close()
		go func() { _, _ = cmd.Process.Wait() }()
		return nil, newError(KindPtyCreation, "dup writer", err)
	}

	h := &Host{
		master:      master,
		reader:      reader,
		writer:      writer,
		cmd:         cmd,
		pid:         cmd.Process.Pid,
		shell:       shell,
		readTimeout: cfg.readTimeout,
		logger:      logger,
		rows:        cfg.rows,
		cols:        cfg.cols,
		reap:        !cfg.noReap,
		reaped:      make(chan struct{}),
	}
	logger.Info("spawned shell",
		zap.Int("pid", h.pid),
		zap.String("shell", shell),
		zap.Int("rows", cfg.rows),
		zap.Int("cols", cfg.cols))
	return h, nil
}

// startErrorKind separates fork failures from failures the child hit
// while preparing its environment or replacing its image.
func startErrorKind(err error) Kind {
	switch {
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.ENOMEM):
		return KindFork
	default:
		return KindEnvironmentSetup
	}
}

func winsize(rows, cols int) *creack.Winsize {
	return &creack.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
}

// dupNonblocking duplicates f's descriptor and wraps it as a pollable
// file so deadlines apply to it.
func dupNonblocking(f *os.File, name string) (*os.File, error) {
	sc, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}
	var (
		fd     int
		dupErr error
	)
	ctlErr := sc.Control(func(raw uintptr) {
		fd, dupErr = unix.Dup(int(raw))
	})
	if ctlErr != nil {
		return nil, ctlErr
	}
	if dupErr != nil {
		return nil, dupErr
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), name), nil
}

// Pid returns the child's process id.
func (h *Host) Pid() int {
	return h.pid
}

// ShellPath returns the resolved shell path.
func (h *Host) ShellPath() string {
	return h.shell
}

// Size returns the last size applied to the pty.
func (h *Host) Size() (rows, cols int) {
	h.sizeMu.Lock()
	defer h.sizeMu.Unlock()
	return h.rows, h.cols
}

// Resize sets the kernel window size and notifies the child with
// SIGWINCH. A failed notification is logged, not returned.
func (h *Host) Resize(rows, cols int) error {
	if h.closed.Load() {
		return newError(KindIO, "resize", ErrClosed)
	}
	rows = max(rows, 1)
	cols = max(cols, 1)

	if err := creack.Setsize(h.master, winsize(rows, cols)); err != nil {
		return newError(KindIO, "resize", err)
	}

	h.sizeMu.Lock()
	h.rows, h.cols = rows, cols
	h.sizeMu.Unlock()

	if err := h.cmd.Process.Signal(syscall.SIGWINCH); err != nil {
		h.logger.Warn("notify window change",
			zap.Int("pid", h.pid),
			zap.Error(err))
	}
	return nil
}

// TryRead waits at most the read timeout for output. It returns no data
// and no error when nothing arrived in time. End of stream is reported
// as an I/O error wrapping io.ErrUnexpectedEOF.
func (h *Host) TryRead() ([]byte, error) {
	if h.closed.Load() {
		return nil, newError(KindIO, "read", ErrClosed)
	}
	if err := h.reader.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		return nil, newError(KindIO, "read", err)
	}

	buf := make([]byte, readBufferSize)
	n, err := h.reader.Read(buf)
	if n > 0 {
		h.logger.Debug("read", zap.Int("bytes", n))
		return buf[:n], nil
	}
	switch {
	case err == nil, errors.Is(err, os.ErrDeadlineExceeded):
		return nil, nil
	case isEndOfStream(err):
		return nil, newError(KindIO, "read", io.ErrUnexpectedEOF)
	default:
		return nil, newError(KindIO, "read", err)
	}
}

// Read blocks until output arrives or ctx is done. It returns io.EOF at
// end of stream.
func (h *Host) Read(ctx context.Context) ([]byte, error) {
	if h.closed.Load() {
		return nil, newError(KindIO, "read", ErrClosed)
	}
	if err := h.reader.SetReadDeadline(time.Time{}); err != nil {
		return nil, newError(KindIO, "read", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = h.reader.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, readBufferSize)
	for {
		n, err := h.reader.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err == nil:
			continue
		case isEndOfStream(err):
			return nil, io.EOF
		default:
			return nil, newError(KindIO, "read", err)
		}
	}
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO)
}

// Write writes all of p, retrying partial writes.
func (h *Host) Write(p []byte) error {
	if h.closed.Load() {
		return newError(KindIO, "write", ErrClosed)
	}
	for len(p) > 0 {
		n, err := h.writer.Write(p)
		p = p[n:]
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return newError(KindIO, "write", err)
		}
	}
	return nil
}

// Close sends SIGTERM to the child, closes every descriptor and, unless
// WithoutReap was given, reaps the child in the background. It is safe to
// call more than once.
func (h *Host) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.logger.Debug("closing pty host", zap.Int("pid", h.pid))

		if sigErr := h.cmd.Process.Signal(syscall.SIGTERM); sigErr != nil && !errors.Is(sigErr, os.ErrProcessDone) {
			h.logger.Warn("terminate child",
				zap.Int("pid", h.pid),
				zap.Error(sigErr))
		}

		err = errors.Join(h.reader.Close(), h.writer.Close(), h.master.Close())
		if !h.reap {
			close(h.reaped)
			return
		}
		go h.reapChild()
	})
	return err
}

// reapChild collects the child's exit status so it does not linger as a
// zombie. A process manager polling the same pid would lose the status to
// it; such callers spawn WithoutReap.
func (h *Host) reapChild() {
	defer close(h.reaped)
	state, err := h.cmd.Process.Wait()
	if err != nil {
		h.logger.Debug("reap child", zap.Int("pid", h.pid), zap.Error(err))
		return
	}
	h.logger.Debug("child reaped", zap.Int("pid", h.pid), zap.String("state", state.String()))
}

// Reaped is closed once the background reaper started by Close returns,
// or as soon as Close returns for a host spawned WithoutReap.
func (h *Host) Reaped() <-chan struct{} {
	return h.reaped
}
