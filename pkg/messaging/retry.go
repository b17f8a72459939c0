package messaging

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy is an exponential backoff with a bounded number of retries.
type RetryPolicy struct {
	MaxRetries  uint64
	MinInterval time.Duration
	MaxInterval time.Duration
	Jitter      time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		MinInterval: time.Second,
		MaxInterval: 5 * time.Minute,
		Jitter:      time.Second,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	minInterval := p.MinInterval
	if minInterval <= 0 {
		minInterval = time.Millisecond
	}
	b := retry.NewExponential(minInterval)
	if p.MaxInterval > 0 {
		b = retry.WithCappedDuration(p.MaxInterval, b)
	}
	if p.Jitter > 0 {
		b = retry.WithJitter(p.Jitter, b)
	}
	return retry.WithMaxRetries(p.MaxRetries, b)
}
