package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroker = errors.New("broker unavailable")

func TestPolicy_ShouldTrip(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"no traffic", gobreaker.Counts{}, false},
		{"below activity threshold", gobreaker.Counts{Requests: 9, TotalFailures: 9}, false},
		{"healthy", gobreaker.Counts{Requests: 20, TotalFailures: 2}, false},
		{"exactly at trip threshold", gobreaker.Counts{Requests: 20, TotalFailures: 3}, true},
		{"all failing", gobreaker.Counts{Requests: 10, TotalFailures: 10, ConsecutiveFailures: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldTrip(tt.counts))
		})
	}
}

func testPolicy() Policy {
	return Policy{
		TripThreshold:   50,
		ActiveThreshold: 3,
		TrackingPeriod:  time.Minute,
		ResetInterval:   50 * time.Millisecond,
		ProbeRequests:   1,
	}
}

func TestBreaker_OpensAfterFailuresAndRejects(t *testing.T) {
	b := New("publish", testPolicy(), nil)

	for i := 0; i < 3; i++ {
		err := b.Execute(func() error { return errBroker })
		require.ErrorIs(t, err, errBroker)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	b := New("publish", testPolicy(), func(_ string, from, to State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errBroker })
	}
	require.Equal(t, StateOpen, b.State())

	require.Eventually(t, func() bool {
		return b.State() == StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_SuccessesKeepItClosed(t *testing.T) {
	b := New("publish", testPolicy(), nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Execute(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "publish", b.Name())
}
