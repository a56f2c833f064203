package resilience

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var breakerNopLogger = zerolog.Nop()

// ErrOpenCircuit is returned when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all calls and counts consecutive failures.
	Closed State = iota
	// Open rejects calls until the cool-off period expires.
	Open
	// HalfOpen permits a single probe to test the dependency.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker trips after a run of consecutive failures and recovers through a
// half-open probe. It guards outbound rate-provider calls so a dead rates
// API fails fast instead of burning the calculation time budget.
type Breaker struct {
	mu          sync.Mutex
	state       State
	consecutive int
	threshold   int
	openedAt    time.Time
	openFor     time.Duration
	probing     bool
	target      string
	logger      *zerolog.Logger
}

// NewBreaker constructs a breaker that opens after threshold consecutive
// failures and stays open for the given cool-off duration.
func NewBreaker(threshold int, openFor time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{state: Closed, threshold: threshold, openFor: openFor}
}

// WithTarget sets the dependency label used for metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.recordStateLocked()
	return b
}

// WithLogger configures the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

// Allow reports whether a call may proceed. When the cool-off has elapsed a
// single probe is admitted and the breaker moves to half-open.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.openFor {
			return false
		}
		b.transitionLocked(HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.probing = false
		if success {
			b.transitionLocked(Closed)
		} else {
			b.transitionLocked(Open)
		}
		return
	}
	if success {
		b.consecutive = 0
		return
	}
	b.consecutive++
	if b.state == Closed && b.consecutive >= b.threshold {
		b.transitionLocked(Open)
	}
}

// CurrentState returns the breaker state, used by tests and health probes.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transitionLocked(next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.consecutive = 0
	if next == Open {
		b.openedAt = time.Now()
	} else {
		b.openedAt = time.Time{}
	}
	b.recordStateLocked()
	label := b.targetLabel()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	logger := b.logger
	if logger == nil {
		logger = &breakerNopLogger
	}
	logger.Info().
		Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String()).
		Msg("breaker_transition")
}

func (b *Breaker) recordStateLocked() {
	if BreakerState == nil {
		return
	}
	BreakerState.WithLabelValues(b.targetLabel()).Set(float64(b.state))
}

func (b *Breaker) targetLabel() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

// Backoff returns an exponential backoff for the 1-based attempt number with
// the given jitter fraction (0.2 == +/-20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}
