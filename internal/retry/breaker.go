package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iudanet/paysync/internal/clock"
)

// State of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Breaker is a circuit breaker for one class of operations.
//
// CLOSED: calls pass; FailureThreshold consecutive counted failures open it.
// OPEN: calls fail with ErrCircuitOpen until ResetTimeout has elapsed.
// HALF_OPEN: one trial call passes; success closes, failure reopens.
//
// Only transient failures are counted. A validation or authentication error
// means the dependency answered, so it resets the failure streak.
type Breaker struct {
	clock    clock.Clock
	openedAt time.Time
	name     string

	failureThreshold int
	resetTimeout     time.Duration

	mu       sync.Mutex
	state    State
	failures int
	trial    bool // пробный вызов в HALF_OPEN уже выполняется
}

// NewBreaker creates a closed breaker. A threshold below 1 is treated as 1.
func NewBreaker(name string, failureThreshold int, resetTimeout time.Duration, clk clock.Clock) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		clock:            clk,
	}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state. An open breaker whose reset timeout has
// elapsed reports HALF_OPEN.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.cooledDown() {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(ctx, err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if !b.cooledDown() {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
		}
		b.state = StateHalfOpen
		b.trial = true
	case StateHalfOpen:
		if b.trial {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
		}
		b.trial = true
	}
	return nil
}

func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case err == nil, !countable(ctx, err) && !aborts(ctx, err):
		b.state = StateClosed
		b.failures = 0
		b.trial = false
	case aborts(ctx, err):
		// вызов прерван вызывающей стороной: о зависимости ничего не известно
		b.trial = false
	default:
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.failureThreshold {
			b.state = StateOpen
			b.openedAt = b.clock.Now()
			b.trial = false
		}
	}
}

// cooledDown must be called with b.mu held.
func (b *Breaker) cooledDown() bool {
	return !b.clock.Now().Before(b.openedAt.Add(b.resetTimeout))
}

func countable(ctx context.Context, err error) bool {
	return !aborts(ctx, err) && Classify(err).Transient()
}

func aborts(ctx context.Context, err error) bool {
	return errors.Is(err, ErrAborted) || (ctx.Err() != nil && errors.Is(err, ctx.Err()))
}

// Breakers is a registry of named breakers sharing one clock.
type Breakers struct {
	clock clock.Clock
	m     map[string]*Breaker
	mu    sync.Mutex
}

// Default breaker settings for Get.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = time.Minute
)

// NewBreakers creates an empty registry.
func NewBreakers(clk clock.Clock) *Breakers {
	return &Breakers{clock: clk, m: make(map[string]*Breaker)}
}

// Get returns the breaker registered under name, creating it with the
// default settings if needed.
func (r *Breakers) Get(name string) *Breaker {
	return r.Register(name, DefaultFailureThreshold, DefaultResetTimeout)
}

// Register returns the breaker registered under name, creating it with the
// given settings if needed. Settings of an existing breaker are not changed.
func (r *Breakers) Register(name string, failureThreshold int, resetTimeout time.Duration) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.m[name]; ok {
		return b
	}
	b := NewBreaker(name, failureThreshold, resetTimeout, r.clock)
	r.m[name] = b
	return b
}

// States returns the current state of every registered breaker, by name.
func (r *Breakers) States() map[string]State {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.m))
	for _, b := range r.m {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	out := make(map[string]State, len(breakers))
	for _, b := range breakers {
		out[b.name] = b.State()
	}
	return out
}
