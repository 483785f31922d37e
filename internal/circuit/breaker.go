// Package circuit implements a circuit breaker around external tool
// invocations. When an environment-wide fault such as an expired grid
// proxy makes every process spawn fail, the breaker rejects calls fast
// instead of paying process startup and retry delays for each one.
package circuit

import (
	"errors"
	"sync"
	"time"
)

// State represents the breaker state
type State int

const (
	// StateClosed - calls pass through
	StateClosed State = iota
	// StateOpen - calls are rejected
	StateOpen
	// StateHalfOpen - a limited number of probe calls pass through
	StateHalfOpen
)

// String returns string representation of state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrOpenState is returned when the breaker rejects a call
var ErrOpenState = errors.New("circuit breaker is open")

// Config contains breaker configuration
type Config struct {
	// MaxProbes is the number of calls allowed through in half-open
	// state before the breaker decides.
	MaxProbes uint32 `yaml:"max_probes"`

	// Interval is the closed-state window after which counts reset.
	Interval time.Duration `yaml:"interval"`

	// Timeout is the open-state period before probing resumes.
	Timeout time.Duration `yaml:"timeout"`

	// ReadyToTrip decides when accumulated failures open the breaker.
	ReadyToTrip func(counts Counts) bool `yaml:"-"`

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to State) `yaml:"-"`
}

// Counts holds call counters for the current window
type Counts struct {
	Calls               uint32 `json:"calls"`
	TotalSuccesses      uint32 `json:"total_successes"`
	TotalFailures       uint32 `json:"total_failures"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

func (c *Counts) onCall()    { c.Calls++ }
func (c *Counts) onSuccess() { c.TotalSuccesses++; c.ConsecutiveFailures = 0 }
func (c *Counts) onFailure() { c.TotalFailures++; c.ConsecutiveFailures++ }
func (c *Counts) clear()     { *c = Counts{} }

// defaultReadyToTrip opens the breaker after a run of consecutive
// process-level failures. Tool-reported failures (missing files) never
// reach the breaker, so a run of these means the environment is broken.
func defaultReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= 5
}

// Breaker is a circuit breaker for a single tool
type Breaker struct {
	name   string
	config Config

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time
}

// NewBreaker creates a breaker with defaults filled in
func NewBreaker(name string, config Config) *Breaker {
	if config.MaxProbes == 0 {
		config.MaxProbes = 1
	}
	if config.Interval <= 0 {
		config.Interval = 60 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ReadyToTrip == nil {
		config.ReadyToTrip = defaultReadyToTrip
	}

	return &Breaker{
		name:   name,
		config: config,
		state:  StateClosed,
		expiry: time.Now().Add(config.Interval),
	}
}

// Allow reports whether a call may proceed. Callers must report the
// outcome with Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)

	if state == StateOpen {
		return ErrOpenState
	}
	if state == StateHalfOpen && b.counts.Calls >= b.config.MaxProbes {
		return ErrOpenState
	}

	b.counts.onCall()
	return nil
}

// Record feeds a call outcome back into the breaker
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)

	if err == nil {
		b.counts.onSuccess()
		if state == StateHalfOpen {
			b.setState(StateClosed, now)
		}
		return
	}

	b.counts.onFailure()
	switch state {
	case StateClosed:
		if b.config.ReadyToTrip(b.counts) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Counts returns a copy of the current window counters
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Reset returns the breaker to closed with cleared counters
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed, time.Now())
	b.counts.clear()
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) currentState(now time.Time) State {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.counts.clear()
			b.expiry = now.Add(b.config.Interval)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.setState(StateHalfOpen, now)
		}
	}
	return b.state
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.counts.clear()

	switch state {
	case StateClosed:
		b.expiry = now.Add(b.config.Interval)
	case StateOpen:
		b.expiry = now.Add(b.config.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, prev, state)
	}
}

// Manager keeps one breaker per tool name
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   Config
}

// NewManager creates a breaker manager sharing one configuration
func NewManager(config Config) *Manager {
	return &Manager{
		breakers: make(map[string]*Breaker),
		config:   config,
	}
}

// Get returns the breaker for a tool, creating it on first use
func (m *Manager) Get(name string) *Breaker {
	m.mu.RLock()
	if b, exists := m.breakers[name]; exists {
		m.mu.RUnlock()
		return b
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if b, exists := m.breakers[name]; exists {
		return b
	}
	b := NewBreaker(name, m.config)
	m.breakers[name] = b
	return b
}

// ResetAll returns every breaker to closed
func (m *Manager) ResetAll() {
	m.mu.RLock()
	breakers := make([]*Breaker, 0, len(m.breakers))
	for _, b := range m.breakers {
		breakers = append(breakers, b)
	}
	m.mu.RUnlock()

	for _, b := range breakers {
		b.Reset()
	}
}

// States returns the state of every known breaker
func (m *Manager) States() map[string]State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]State, len(m.breakers))
	for name, b := range m.breakers {
		states[name] = b.State()
	}
	return states
}
