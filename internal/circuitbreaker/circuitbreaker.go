package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrOpen is returned while the breaker is open and calls are shed.
	ErrOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned in half-open state once the probe
	// budget is spent.
	ErrTooManyRequests = errors.New("too many requests")
)

// State of the breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("unknown state: %d", int(s))
	}
}

// Counts tracks request outcomes within the current generation.
type Counts struct {
	Requests      uint32
	TotalFailures uint32
	Failures      uint32
	Successes     uint32
}

// Settings configures a CircuitBreaker.
type Settings struct {
	Name          string
	MaxRequests   uint32
	Timeout       time.Duration
	ReadyToTrip   func(counts Counts) bool
	OnStateChange func(name string, from State, to State)
}

// DefaultSettings trips after 3+ requests with a 60% failure ratio and holds
// the breaker open for a minute before probing.
func DefaultSettings(name string) *Settings {
	return &Settings{
		Name:        name,
		MaxRequests: 5,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts Counts) bool {
			failureRatio := float64(counts.Failures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
}

// CircuitBreaker sheds calls to a failing dependency so a saturated external
// service is not hammered with retries.
type CircuitBreaker struct {
	name          string
	maxRequests   uint32
	timeout       time.Duration
	readyToTrip   func(counts Counts) bool
	onStateChange func(name string, from State, to State)

	mutex      sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

// New creates a circuit breaker with the given settings.
func New(settings *Settings) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:          settings.Name,
		maxRequests:   settings.MaxRequests,
		timeout:       settings.Timeout,
		readyToTrip:   settings.ReadyToTrip,
		onStateChange: settings.OnStateChange,
		state:         StateClosed,
	}
	if cb.timeout == 0 {
		cb.timeout = 60 * time.Second
	}
	if cb.readyToTrip == nil {
		cb.readyToTrip = DefaultSettings(settings.Name).ReadyToTrip
	}
	return cb
}

// Execute runs fn under breaker protection. A panic counts as a failure and
// is re-raised.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	generation, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			cb.afterRequest(generation, false)
			panic(e)
		}
	}()

	err = fn()
	cb.afterRequest(generation, err == nil)
	return err
}

// IsBreakerError reports whether err came from the breaker itself rather
// than the protected call.
func IsBreakerError(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyRequests)
}

func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := time.Now()

	switch cb.state {
	case StateClosed:
		cb.counts.Requests++
		return cb.generation, nil

	case StateOpen:
		if now.After(cb.expiry) {
			cb.setState(StateHalfOpen, now)
			cb.counts.Requests++
			return cb.generation, nil
		}
		return 0, ErrOpen

	case StateHalfOpen:
		if cb.counts.Requests >= cb.maxRequests {
			return 0, ErrTooManyRequests
		}
		cb.counts.Requests++
		return cb.generation, nil

	default:
		return 0, errors.New("invalid circuit breaker state")
	}
}

func (cb *CircuitBreaker) afterRequest(generation uint64, success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	// A state change already retired this generation's counts.
	if cb.generation != generation {
		return
	}

	if success {
		cb.onSuccess(time.Now())
	} else {
		cb.onFailure(time.Now())
	}
}

func (cb *CircuitBreaker) onSuccess(now time.Time) {
	switch cb.state {
	case StateClosed:
		cb.counts.Successes++
		if cb.counts.Failures > 0 {
			cb.counts.Failures--
		}

	case StateHalfOpen:
		cb.counts.Successes++
		if cb.counts.Successes >= cb.maxRequests {
			cb.setState(StateClosed, now)
		}
	}
}

func (cb *CircuitBreaker) onFailure(now time.Time) {
	switch cb.state {
	case StateClosed:
		cb.counts.Failures++
		cb.counts.TotalFailures++
		if cb.readyToTrip(cb.counts) {
			cb.setState(StateOpen, now)
		}

	case StateHalfOpen:
		cb.setState(StateOpen, now)
	}
}

func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state
	cb.generation++
	cb.counts = Counts{}

	if state == StateOpen {
		cb.expiry = now.Add(cb.timeout)
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, prev, state)
	}
}
