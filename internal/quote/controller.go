package quote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runner abstracts the orchestrator so controllers can be exercised against
// stubs in tests.
type Runner interface {
	Run(ctx context.Context, p Params) (Breakdown, error)
}

// State is the controller lifecycle position.
type State int

const (
	// StateIdle means no input has been observed yet.
	StateIdle State = iota
	// StateDebouncing means input arrived and the quiescence window is open.
	StateDebouncing
	// StateCalculating means a calculation is in flight.
	StateCalculating
	// StateSettled means the latest input has a surfaced result.
	StateSettled
	// StateErrored means the latest calculation failed; the last good
	// result stays visible alongside the error.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateCalculating:
		return "calculating"
	case StateSettled:
		return "settled"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Snapshot is the externally visible controller state.
type Snapshot struct {
	Result        *Breakdown
	Err           error
	IsCalculating bool
	State         State
}

// ControllerConfig groups controller dependencies.
type ControllerConfig struct {
	Runner Runner
	// Debounce is the quiescence window for real-time mode. Zero applies
	// the 800ms default.
	Debounce time.Duration
	// RealTime enables debounced automatic recalculation on every Update.
	// When disabled, Update only stores parameters and CalculateNow is the
	// explicit trigger.
	RealTime bool
	Logger   *zerolog.Logger
}

const defaultDebounce = 800 * time.Millisecond

// ErrControllerClosed is returned by CalculateNow after Close.
var ErrControllerClosed = errors.New("quote: controller closed")

// Controller observes a stream of parameter edits, debounces them and keeps
// the surfaced result monotonically ordered by input recency. Staleness is
// decided by generation counters at resolution time, not by locking around
// the calculation: an older run's outcome never overwrites a newer one.
type Controller struct {
	runner   Runner
	debounce time.Duration
	realTime bool
	logger   *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	applied  uint64
	params   Params
	state    State
	result   *Breakdown
	err      error
	inFlight bool
	rerun    bool
	closed   bool
	changes  chan struct{}
}

// NewController constructs a controller. Close must be called when the
// consumer goes away, otherwise pending timers keep firing.
func NewController(cfg ControllerConfig) *Controller {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		runner:   cfg.Runner,
		debounce: debounce,
		realTime: cfg.RealTime,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
		changes:  make(chan struct{}, 1),
	}
}

// Update records a parameter edit. In real-time mode it restarts the
// debounce window; any in-flight calculation is implicitly marked stale
// because its generation is now behind.
func (c *Controller) Update(p Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.gen++
	c.params = p
	if !c.realTime {
		return
	}
	c.state = StateDebouncing
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.debounceFired)
	c.notifyLocked()
}

func (c *Controller) debounceFired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.inFlight {
		// One orchestrator call pending at a time; rerun with the latest
		// generation once the current one resolves.
		c.rerun = true
		return
	}
	c.startRunLocked()
}

func (c *Controller) startRunLocked() {
	c.inFlight = true
	c.state = StateCalculating
	gen := c.gen
	params := c.params
	c.notifyLocked()
	go c.run(gen, params)
}

func (c *Controller) run(gen uint64, params Params) {
	b, err := c.runner.Run(c.ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.applyLocked(gen, b, err)
	if c.rerun && !c.closed {
		c.rerun = false
		c.startRunLocked()
	}
}

// applyLocked surfaces an outcome unless it is stale. Last-write-wins: the
// outcome is discarded when newer input exists or a newer outcome already
// landed.
func (c *Controller) applyLocked(gen uint64, b Breakdown, err error) {
	if c.closed || gen != c.gen || gen <= c.applied {
		if c.logger != nil {
			c.logger.Debug().Uint64("gen", gen).Uint64("latest", c.gen).Msg("stale_result_discarded")
		}
		return
	}
	c.applied = gen
	if err != nil {
		c.err = err
		c.state = StateErrored
	} else {
		result := b
		c.result = &result
		c.err = nil
		c.state = StateSettled
	}
	c.notifyLocked()
}

// CalculateNow triggers an immediate calculation with the stored parameters,
// bypassing the debounce. The returned breakdown is always handed to the
// caller; the surfaced snapshot only updates when the run is still the
// newest one.
func (c *Controller) CalculateNow(ctx context.Context) (Breakdown, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Breakdown{}, ErrControllerClosed
	}
	c.gen++
	gen := c.gen
	params := c.params
	c.state = StateCalculating
	c.notifyLocked()
	c.mu.Unlock()

	b, err := c.runner.Run(ctx, params)

	c.mu.Lock()
	c.applyLocked(gen, b, err)
	c.mu.Unlock()
	return b, err
}

// Snapshot returns the current result, error and calculating flag.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Result:        c.result,
		Err:           c.err,
		IsCalculating: c.state == StateCalculating || c.state == StateDebouncing,
		State:         c.state,
	}
}

// Changes signals after every surfaced state change. The channel is
// best-effort: a slow consumer coalesces notifications.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

// Close stops pending timers and discards any in-flight result. It is safe
// to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.cancel()
}

func (c *Controller) notifyLocked() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}
