//go:build linux || darwin

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/termcore/internal/config"
	"github.com/dshills/termcore/internal/process"
	"github.com/dshills/termcore/internal/pty"
	"github.com/dshills/termcore/internal/recovery"
	"github.com/dshills/termcore/internal/terminal"
)

const (
	// exitGrace is how long a child whose connection died gets to be
	// reaped before it is treated as still alive.
	exitGrace = 500 * time.Millisecond

	// closeGrace is how long Close waits for the child to go away after
	// SIGTERM before killing it.
	closeGrace = time.Second
)

// Session runs a shell on a resilient pty connection.
//
// Run is the single reader: it feeds output to the parser in arrival
// order and reports the shell's exit. Write and Resize may be called
// concurrently from other goroutines.
type Session struct {
	id      string
	started time.Time
	res     *Resilient
	logger  *zap.Logger

	pollInterval time.Duration
	managerOpts  []process.Option

	onOutput       func([]byte)
	onExit         func(process.ExitStatus, time.Duration)
	onWindowChange func() (rows, cols int, err error)

	mu      sync.Mutex
	manager *process.Manager
	pending map[int]DropReason

	closeOnce sync.Once
	closeErr  error
}

type sessionConfig struct {
	logger         *zap.Logger
	spawn          Spawner
	parserOpts     []terminal.ParserOption
	onOutput       func([]byte)
	onExit         func(process.ExitStatus, time.Duration)
	onWindowChange func() (rows, cols int, err error)
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(c *sessionConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSessionSpawner replaces the pty spawner built from configuration.
func WithSessionSpawner(spawn Spawner) SessionOption {
	return func(c *sessionConfig) {
		c.spawn = spawn
	}
}

// WithTitleHandler is called when the shell sets the window title.
func WithTitleHandler(fn func(title string)) SessionOption {
	return func(c *sessionConfig) {
		c.parserOpts = append(c.parserOpts, terminal.WithTitleHandler(fn))
	}
}

// OnOutput is called by Run after each chunk of output has been parsed.
func OnOutput(fn func(data []byte)) SessionOption {
	return func(c *sessionConfig) {
		c.onOutput = fn
	}
}

// OnExit is called by Run once the shell has terminated, with its status
// and how long the session ran.
func OnExit(fn func(status process.ExitStatus, elapsed time.Duration)) SessionOption {
	return func(c *sessionConfig) {
		c.onExit = fn
	}
}

// OnWindowChange supplies the new size when HandleSignals sees SIGWINCH.
func OnWindowChange(fn func() (rows, cols int, err error)) SessionOption {
	return func(c *sessionConfig) {
		c.onWindowChange = fn
	}
}

// New starts a session for cfg. The shell is spawned before New returns.
func New(ctx context.Context, cfg config.Config, opts ...SessionOption) (*Session, error) {
	sc := sessionConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&sc)
	}

	id := uuid.NewString()
	logger := sc.logger.With(zap.String("session", id))

	spawn := sc.spawn
	if spawn == nil {
		spawn = HostSpawner(
			pty.WithShell(cfg.Shell.Path),
			pty.WithEnv(cfg.Shell.Env...),
			pty.WithDir(cfg.Shell.Dir),
			pty.WithReadTimeout(cfg.Terminal.ReadTimeout.Duration),
			pty.WithLogger(logger.Named("pty")),
			pty.WithoutReap(),
		)
	}

	res := NewResilient(cfg.Terminal.Rows, cfg.Terminal.Cols,
		WithRetryConfig(cfg.Retry.Recovery()),
		WithSpawner(spawn),
		WithLogger(logger.Named("resilient")),
		WithParserOptions(sc.parserOpts...),
		WithStateChange(func(from, to recovery.State) {
			logger.Debug("connection state changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		}))

	if err := res.EnsureConnected(ctx); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	s := &Session{
		id:             id,
		started:        time.Now(),
		res:            res,
		logger:         logger,
		pollInterval:   cfg.Terminal.PollInterval.Duration,
		onOutput:       sc.onOutput,
		onExit:         sc.onExit,
		onWindowChange: sc.onWindowChange,
		pending:        make(map[int]DropReason),
		managerOpts: []process.Option{
			process.WithPollInterval(cfg.Terminal.PollInterval.Duration),
			process.WithLogger(logger.Named("process")),
		},
	}
	manager, err := process.NewManager(res.Pid(), s.managerOpts...)
	if err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("starting session: %w", err)
	}
	s.manager = manager

	logger.Info("session started", zap.Int("pid", manager.Pid()))
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Started returns when the session started.
func (s *Session) Started() time.Time {
	return s.started
}

// Pid returns the current child's pid, or 0 while disconnected.
func (s *Session) Pid() int {
	return s.res.Pid()
}

// Grid returns the screen model.
func (s *Session) Grid() *terminal.Grid {
	return s.res.Grid()
}

// Parser returns the protocol interpreter.
func (s *Session) Parser() *terminal.Parser {
	return s.res.Parser()
}

// Resilient returns the underlying connection wrapper.
func (s *Session) Resilient() *Resilient {
	return s.res
}

// ProcessManager returns the manager of the current child. It is nil
// between retiring a dropped child and adopting its replacement.
func (s *Session) ProcessManager() *process.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager
}

// Write sends input to the shell.
func (s *Session) Write(ctx context.Context, p []byte) error {
	return s.res.WriteResilient(ctx, p)
}

// Resize applies a new size to the grid immediately and then to the pty.
func (s *Session) Resize(ctx context.Context, rows, cols int) error {
	return s.res.ResizeResilient(ctx, rows, cols)
}

// Run reads output until the shell exits, ctx is done, or an
// unrecoverable error occurs. It returns nil after the shell exits.
func (s *Session) Run(ctx context.Context) error {
	var lastCheck time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := s.res.ReadResilient(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, ErrClosed) || errors.Is(err, recovery.ErrRetriesExhausted) ||
				recovery.Classify(err, 1, 1) == recovery.Fail {
				return fmt.Errorf("session read: %w", err)
			}
			s.logger.Debug("transient read error", zap.Error(err))
			if err := recovery.Sleep(ctx, s.pollInterval); err != nil {
				return err
			}
			continue
		}

		if len(data) > 0 {
			if s.onOutput != nil {
				s.onOutput(data)
			}
			continue
		}

		if time.Since(lastCheck) < s.pollInterval && s.res.IsConnected() {
			continue
		}
		lastCheck = time.Now()

		status, exited, err := s.checkExit(ctx)
		if err != nil {
			return err
		}
		if exited {
			elapsed := time.Since(s.started)
			s.logger.Info("shell exited",
				zap.Stringer("status", status),
				zap.Duration("elapsed", elapsed))
			if s.onExit != nil {
				s.onExit(status, elapsed)
			}
			return nil
		}
	}
}

// checkExit polls the current child. When its connection ended in end
// of stream, the child gets exitGrace to be reaped and its exit ends the
// session. A connection dropped for recovery is not an exit: its child
// is killed and reaped quietly and the replacement child is adopted.
func (s *Session) checkExit(ctx context.Context) (process.ExitStatus, bool, error) {
	// Read the pid before taking drops so a drop of this connection is
	// always seen together with the pid that replaced it.
	pid := s.res.Pid()
	s.noteDrops()

	m := s.ProcessManager()
	s.retireStale(pid, m)

	if m == nil {
		if pid == 0 {
			return process.Running(), false, nil
		}
		return process.Running(), false, s.adopt(pid)
	}

	if pid == m.Pid() {
		status, err := m.TryWait()
		if err != nil {
			return status, false, err
		}
		return status, status.IsTerminal(), nil
	}

	reason, dropped := s.takeDrop(m.Pid())
	if dropped && reason == DropEndOfStream {
		status, ok, err := m.WaitForExitTimeout(ctx, exitGrace)
		if err != nil {
			return status, false, err
		}
		if ok {
			return status, true, nil
		}
		s.logger.Warn("child outlived its connection",
			zap.Int("pid", m.Pid()),
			zap.Int("new_pid", pid))
	} else {
		fields := []zap.Field{zap.Int("pid", m.Pid()), zap.Int("new_pid", pid)}
		if dropped {
			fields = append(fields, zap.Stringer("reason", reason))
		}
		s.logger.Info("connection replaced", fields...)
	}

	s.retire(m)
	s.setManager(nil)
	if pid != 0 {
		if err := s.adopt(pid); err != nil {
			return process.Running(), false, err
		}
	}
	return process.Running(), false, nil
}

// noteDrops moves the connections Resilient discarded into pending.
func (s *Session) noteDrops() {
	drops := s.res.TakeDrops()
	if len(drops) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range drops {
		s.pending[d.Pid] = d.Reason
	}
}

func (s *Session) takeDrop(pid int) (DropReason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason, ok := s.pending[pid]
	delete(s.pending, pid)
	return reason, ok
}

// retireStale retires children of dropped connections that were never
// adopted: neither the current pid nor the managed one.
func (s *Session) retireStale(pid int, m *process.Manager) {
	s.mu.Lock()
	var stale []int
	for p := range s.pending {
		if p == pid || (m != nil && p == m.Pid()) {
			continue
		}
		stale = append(stale, p)
		delete(s.pending, p)
	}
	s.mu.Unlock()

	for _, p := range stale {
		sm, err := process.NewManager(p, s.managerOpts...)
		if err != nil {
			continue
		}
		s.logger.Debug("retiring dropped child", zap.Int("pid", p))
		s.retire(sm)
	}
}

func (s *Session) setManager(m *process.Manager) {
	s.mu.Lock()
	s.manager = m
	s.mu.Unlock()
}

func (s *Session) adopt(pid int) error {
	m, err := process.NewManager(pid, s.managerOpts...)
	if err != nil {
		return err
	}
	s.setManager(m)
	s.logger.Info("adopted child", zap.Int("pid", pid))
	return nil
}

// retire kills m's child and reaps it in the background.
func (s *Session) retire(m *process.Manager) {
	if err := m.Kill(); err != nil {
		s.logger.Warn("kill child", zap.Int("pid", m.Pid()), zap.Error(err))
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeGrace)
		defer cancel()
		if _, err := m.WaitForExit(ctx); err != nil {
			s.logger.Warn("reap child", zap.Int("pid", m.Pid()), zap.Error(err))
		}
	}()
}

// HandleSignals relays SIGINT and SIGTERM to the shell and applies
// window size changes until ctx is done.
func (s *Session) HandleSignals(ctx context.Context) error {
	var relay *process.Relay
	defer func() {
		if relay != nil {
			relay.Stop()
		}
	}()

	for {
		pid := s.res.Pid()
		if relay == nil || (pid != 0 && pid != relay.Pid()) {
			if pid == 0 {
				if err := recovery.Sleep(ctx, s.pollInterval); err != nil {
					return err
				}
				continue
			}
			if relay != nil {
				relay.Stop()
			}
			r, err := process.NewRelay(pid, process.WithLogger(s.logger.Named("signals")))
			if err != nil {
				return err
			}
			relay = r
		}

		ev, err := relay.Next(ctx)
		if err != nil {
			return err
		}
		s.logger.Debug("signal received", zap.Stringer("event", ev))

		if ev != process.WindowChange || s.onWindowChange == nil {
			continue
		}
		rows, cols, err := s.onWindowChange()
		if err != nil {
			s.logger.Warn("read window size", zap.Error(err))
			continue
		}
		if err := s.Resize(ctx, rows, cols); err != nil {
			s.logger.Warn("resize after window change",
				zap.Int("rows", rows),
				zap.Int("cols", cols),
				zap.Error(err))
		}
	}
}

// Close terminates the shell and releases the pty. The child is sent
// SIGTERM, then SIGKILL if it is still running after a grace period.
// Children of earlier dropped connections are reaped the same way.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		pid := s.res.Pid()
		s.closeErr = s.res.Close()
		s.noteDrops()

		s.mu.Lock()
		seen := make(map[int]bool)
		var pids []int
		if s.manager != nil {
			pids = append(pids, s.manager.Pid())
		}
		if pid != 0 {
			pids = append(pids, pid)
		}
		for p := range s.pending {
			pids = append(pids, p)
		}
		clear(s.pending)
		current := s.manager
		s.mu.Unlock()

		for _, p := range pids {
			if seen[p] {
				continue
			}
			seen[p] = true
			m := current
			if m == nil || m.Pid() != p {
				nm, err := process.NewManager(p, s.managerOpts...)
				if err != nil {
					continue
				}
				m = nm
			}
			s.reapOrKill(m)
		}
		s.logger.Info("session closed")
	})
	return s.closeErr
}

func (s *Session) reapOrKill(m *process.Manager) {
	_, ok, err := m.WaitForExitTimeout(context.Background(), closeGrace)
	if err != nil || ok {
		return
	}
	s.retire(m)
}
