package recovery

import (
	"sync"
	"time"
)

// State is the connection state tracked by a Policy.
type State int

const (
	// Disconnected means there is no live connection.
	Disconnected State = iota
	// Connected means a connection is established.
	Connected
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of a Policy.
type Stats struct {
	State               State
	ConsecutiveFailures int
	TotalFailures       int
	Recreations         int
	LastFailure         time.Time
	LastError           error
	LastStateChange     time.Time
}

// IsConnected reports whether the snapshot was taken while connected.
func (s Stats) IsConnected() bool {
	return s.State == Connected
}

// Policy is the Disconnected/Connected state machine of a resilient
// connection. It counts consecutive failures and classifies each one.
// Policy is safe for concurrent use.
type Policy struct {
	mu     sync.Mutex
	config Config

	state           State
	failures        int
	total           int
	recreations     int
	lastFailure     time.Time
	lastErr         error
	lastStateChange time.Time

	onStateChange func(from, to State)
	now           func() time.Time
}

// NewPolicy creates a disconnected policy.
func NewPolicy(cfg Config) *Policy {
	return &Policy{
		config:          cfg,
		state:           Disconnected,
		lastStateChange: time.Now(),
		now:             time.Now,
	}
}

// OnStateChange registers fn to be called after every transition. fn is
// called without the policy lock held.
func (p *Policy) OnStateChange(fn func(from, to State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStateChange = fn
}

// Config returns the policy's configuration.
func (p *Policy) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// State returns the current state.
func (p *Policy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connected records an established connection and resets the failure count.
func (p *Policy) Connected() {
	p.mu.Lock()
	p.failures = 0
	notify := p.transitionTo(Connected)
	p.mu.Unlock()
	notify()
}

// Disconnected records a lost or discarded connection.
func (p *Policy) Disconnected() {
	p.mu.Lock()
	notify := p.transitionTo(Disconnected)
	p.mu.Unlock()
	notify()
}

// Succeeded records a successful operation.
func (p *Policy) Succeeded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
}

// Failed records a failed operation and returns the action to take. A
// Recreate action moves the policy to Disconnected.
func (p *Policy) Failed(err error) Action {
	p.mu.Lock()
	p.failures++
	p.total++
	p.lastFailure = p.now()
	p.lastErr = err

	action := Classify(err, p.failures, p.config.FailureThreshold)
	notify := func() {}
	if action == Recreate {
		p.recreations++
		notify = p.transitionTo(Disconnected)
	}
	p.mu.Unlock()

	notify()
	return action
}

// Stats returns a snapshot of the policy.
func (p *Policy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		State:               p.state,
		ConsecutiveFailures: p.failures,
		TotalFailures:       p.total,
		Recreations:         p.recreations,
		LastFailure:         p.lastFailure,
		LastError:           p.lastErr,
		LastStateChange:     p.lastStateChange,
	}
}

// transitionTo changes state (must hold lock) and returns the callback
// invocation to run once the lock is released.
func (p *Policy) transitionTo(to State) func() {
	from := p.state
	if from == to {
		return func() {}
	}
	p.state = to
	p.lastStateChange = p.now()

	fn := p.onStateChange
	if fn == nil {
		return func() {}
	}
	return func() { fn(from, to) }
}
