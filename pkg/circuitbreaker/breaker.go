// Package circuitbreaker guards calls to an unreliable dependency. One Breaker
// is shared by every caller in the process; its state moves
// closed -> open -> half-open -> closed according to a Policy.
package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

var ErrOpen = errors.New("circuit breaker is open")

type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

type Policy struct {
	// TripThreshold is the failure percentage (0-100) that opens the breaker.
	TripThreshold float64
	// ActiveThreshold is the number of attempts inside one tracking period
	// before the failure percentage is evaluated at all.
	ActiveThreshold uint32
	// TrackingPeriod resets the closed-state counters.
	TrackingPeriod time.Duration
	// ResetInterval is how long the breaker stays open before probing.
	ResetInterval time.Duration
	// ProbeRequests is the number of calls allowed while half-open.
	ProbeRequests uint32
}

func DefaultPolicy() Policy {
	return Policy{
		TripThreshold:   15,
		ActiveThreshold: 10,
		TrackingPeriod:  time.Minute,
		ResetInterval:   5 * time.Minute,
		ProbeRequests:   1,
	}
}

// ShouldTrip reports whether the counts of the current tracking period open
// the breaker.
func (p Policy) ShouldTrip(c gobreaker.Counts) bool {
	if c.Requests == 0 || c.Requests < p.ActiveThreshold {
		return false
	}
	failureRate := float64(c.TotalFailures) * 100 / float64(c.Requests)
	return failureRate >= p.TripThreshold
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

// New builds a breaker. onChange may be nil; it is called synchronously on
// every state transition.
func New(name string, p Policy, onChange func(name string, from, to State)) *Breaker {
	probes := p.ProbeRequests
	if probes == 0 {
		probes = 1
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: probes,
		Interval:    p.TrackingPeriod,
		Timeout:     p.ResetInterval,
		ReadyToTrip: p.ShouldTrip,
	}
	if onChange != nil {
		st.OnStateChange = onChange
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

// Execute runs fn unless the breaker rejects the call. A rejection is
// reported as ErrOpen without invoking fn.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrOpen, b.cb.Name())
	}
	return err
}

func (b *Breaker) State() State {
	return b.cb.State()
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}
