//go:build linux || darwin

package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/termcore/internal/pty"
	"github.com/dshills/termcore/internal/recovery"
	"github.com/dshills/termcore/internal/terminal"
)

// Resilient is a self-healing connection with an embedded parser.
//
// Every operation first ensures a connection exists, spawning one with
// bounded exponential backoff. Failures are classified: transient ones
// are retried on the same connection, a dead connection is discarded and
// respawned, and unrecoverable ones are returned. One mutex serializes
// all operations.
type Resilient struct {
	mu     sync.Mutex
	conn   Conn
	closed bool

	parser *terminal.Parser
	config recovery.Config
	policy *recovery.Policy
	spawn  Spawner
	logger *zap.Logger

	drops []Drop
}

// DropReason says why a connection was discarded.
type DropReason int

const (
	// DropEndOfStream means the pty reported end of stream, which happens
	// when the shell has exited.
	DropEndOfStream DropReason = iota
	// DropRecreate means an I/O failure was classified as Recreate.
	DropRecreate
	// DropDisconnect means Disconnect was called.
	DropDisconnect
)

// String returns the string representation of the reason.
func (r DropReason) String() string {
	switch r {
	case DropEndOfStream:
		return "end of stream"
	case DropRecreate:
		return "recreate"
	case DropDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Drop records a discarded connection and the pid of its child.
type Drop struct {
	Pid    int
	Reason DropReason
}

func dropReasonFor(err error) DropReason {
	if pty.IOKindOf(err) == pty.IOUnexpectedEOF {
		return DropEndOfStream
	}
	return DropRecreate
}

type resilientConfig struct {
	retry         recovery.Config
	spawn         Spawner
	logger        *zap.Logger
	parserOpts    []terminal.ParserOption
	onStateChange func(from, to recovery.State)
}

// Option configures a Resilient.
type Option func(*resilientConfig)

// WithRetryConfig sets the retry and backoff policy.
func WithRetryConfig(cfg recovery.Config) Option {
	return func(c *resilientConfig) {
		c.retry = cfg
	}
}

// WithSpawner replaces the default pty spawner.
func WithSpawner(spawn Spawner) Option {
	return func(c *resilientConfig) {
		if spawn != nil {
			c.spawn = spawn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *resilientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithParserOptions passes options to the embedded parser.
func WithParserOptions(opts ...terminal.ParserOption) Option {
	return func(c *resilientConfig) {
		c.parserOpts = append(c.parserOpts, opts...)
	}
}

// WithStateChange registers a callback for connect and disconnect
// transitions.
func WithStateChange(fn func(from, to recovery.State)) Option {
	return func(c *resilientConfig) {
		c.onStateChange = fn
	}
}

// NewResilient creates a disconnected Resilient whose parser is rows by
// cols. No shell is spawned until the first operation.
func NewResilient(rows, cols int, opts ...Option) *Resilient {
	cfg := resilientConfig{
		retry:  recovery.DefaultConfig(),
		spawn:  HostSpawner(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	parserOpts := append([]terminal.ParserOption{terminal.WithLogger(cfg.logger.Named("parser"))}, cfg.parserOpts...)
	policy := recovery.NewPolicy(cfg.retry)
	if cfg.onStateChange != nil {
		policy.OnStateChange(cfg.onStateChange)
	}

	return &Resilient{
		parser: terminal.NewParser(rows, cols, parserOpts...),
		config: cfg.retry,
		policy: policy,
		spawn:  cfg.spawn,
		logger: cfg.logger,
	}
}

// EnsureConnected spawns a connection if there is none.
func (r *Resilient) EnsureConnected(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureConnectedLocked(ctx)
}

func (r *Resilient) ensureConnectedLocked(ctx context.Context) error {
	if r.closed {
		return ErrClosed
	}
	if r.conn != nil {
		return nil
	}

	rows, cols := r.parser.Grid().Size()
	attempts := r.config.Attempts()
	var last recovery.Action

	conn, err := recovery.Do(ctx, r.config, func(attempt int) (Conn, error) {
		conn, err := r.spawn(ctx, rows, cols)
		if err != nil {
			last = r.policy.Failed(err)
			r.logger.Warn("pty initialization failed",
				zap.Int("attempt", attempt+1),
				zap.Stringer("action", last),
				zap.Error(err))
			if last != recovery.Fail && attempt+1 < attempts {
				r.logger.Info("retrying pty initialization",
					zap.Duration("delay", r.config.Delay(attempt)))
			}
			return nil, err
		}
		if attempt > 0 {
			r.logger.Info("pty initialized after retries", zap.Int("attempt", attempt+1))
		}
		return conn, nil
	}, func(error) bool {
		return last == recovery.Fail
	})
	if err != nil {
		r.logger.Error("pty initialization failed permanently", zap.Error(err))
		return err
	}

	r.conn = conn
	r.policy.Connected()
	r.logger.Info("pty connected",
		zap.Int("pid", conn.Pid()),
		zap.Int("rows", rows),
		zap.Int("cols", cols))
	return nil
}

// WriteResilient writes p, retrying and reconnecting as classified.
// Partial writes are not tracked; a retried write sends all of p again.
func (r *Resilient) WriteResilient(ctx context.Context, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts := r.config.Attempts()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := r.ensureConnectedLocked(ctx); err != nil {
			return err
		}

		err := r.conn.Write(p)
		if err == nil {
			r.policy.Succeeded()
			if attempt > 0 {
				r.logger.Info("write succeeded after retries", zap.Int("attempt", attempt+1))
			}
			return nil
		}
		lastErr = err

		action := r.policy.Failed(err)
		r.logger.Warn("write failed",
			zap.Int("attempt", attempt+1),
			zap.Stringer("action", action),
			zap.Error(err))

		switch action {
		case recovery.Fail:
			r.logger.Error("unrecoverable write error", zap.Error(err))
			return err
		case recovery.Recreate:
			r.logger.Warn("recreating pty connection")
			r.dropLocked(dropReasonFor(err))
		}

		if attempt+1 < attempts {
			if err := recovery.Sleep(ctx, r.config.Delay(attempt+1)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("write: %w: %w", recovery.ErrRetriesExhausted, lastErr)
}

// ReadResilient reads available output and feeds it to the parser. When
// the connection is found dead it is discarded and no data and no error
// are returned; the next call reconnects.
func (r *Resilient) ReadResilient(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureConnectedLocked(ctx); err != nil {
		return nil, err
	}

	data, err := r.conn.TryRead()
	if err != nil {
		action := r.policy.Failed(err)
		r.logger.Warn("read failed", zap.Stringer("action", action), zap.Error(err))
		if action == recovery.Recreate {
			r.logger.Warn("recreating pty connection after read error")
			r.dropLocked(dropReasonFor(err))
			return nil, nil
		}
		return nil, err
	}

	if len(data) > 0 {
		r.parser.Parse(data)
		r.policy.Succeeded()
	}
	return data, nil
}

// ResizeResilient resizes the parser's grid, then the connection. The
// grid is resized even when connecting or the kernel resize fails; a
// failed kernel resize is returned without discarding the connection.
func (r *Resilient) ResizeResilient(ctx context.Context, rows, cols int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parser.Resize(rows, cols)
	rows, cols = r.parser.Grid().Size()

	if err := r.ensureConnectedLocked(ctx); err != nil {
		return err
	}
	if err := r.conn.Resize(rows, cols); err != nil {
		r.logger.Warn("resize failed",
			zap.Int("rows", rows),
			zap.Int("cols", cols),
			zap.Error(err))
		return err
	}
	r.logger.Info("pty resized", zap.Int("rows", rows), zap.Int("cols", cols))
	return nil
}

// Disconnect tears down the current connection. The next operation
// reconnects.
func (r *Resilient) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		r.logger.Info("forcing pty disconnection", zap.Int("pid", r.conn.Pid()))
		r.dropLocked(DropDisconnect)
	}
}

// dropLocked closes and forgets the connection (must hold lock).
func (r *Resilient) dropLocked(reason DropReason) {
	if r.conn == nil {
		return
	}
	pid := r.conn.Pid()
	if err := r.conn.Close(); err != nil {
		r.logger.Debug("close connection", zap.Error(err))
	}
	r.conn = nil
	r.drops = append(r.drops, Drop{Pid: pid, Reason: reason})
	r.policy.Disconnected()
	r.logger.Debug("dropped connection", zap.Int("pid", pid), zap.Stringer("reason", reason))
}

// TakeDrops returns the connections discarded since the last call, oldest
// first, and forgets them. Close is not recorded.
func (r *Resilient) TakeDrops() []Drop {
	r.mu.Lock()
	defer r.mu.Unlock()
	drops := r.drops
	r.drops = nil
	return drops
}

// IsConnected reports whether a connection is held.
func (r *Resilient) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// Pid returns the connected child's pid, or 0 when disconnected.
func (r *Resilient) Pid() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return 0
	}
	return r.conn.Pid()
}

// Parser returns the embedded parser.
func (r *Resilient) Parser() *terminal.Parser {
	return r.parser
}

// Grid returns the parser's grid.
func (r *Resilient) Grid() *terminal.Grid {
	return r.parser.Grid()
}

// Stats returns connection statistics.
func (r *Resilient) Stats() recovery.Stats {
	return r.policy.Stats()
}

// Close tears down the connection. Later operations return ErrClosed.
func (r *Resilient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	r.policy.Disconnected()
	r.logger.Debug("dropped resilient pty host")
	return err
}
