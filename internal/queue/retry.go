package queue

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the queue's retry contract for one job delivery: at most
// MaxAttempts tries, exponential delay between them. The queue knows nothing
// about delivery semantics; workers decide what a failed attempt means.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
	}
}

// Delay returns the wait scheduled after the nth failed attempt (1-based):
// InitialDelay * 2^(n-1), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.InitialDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Backoff builds a deterministic backoff for one job delivery, suitable for
// backoff.Retry. Randomization is disabled so retry spacing matches Delay.
func (p Policy) Backoff() backoff.BackOff {
	if p.MaxAttempts < 1 {
		p = DefaultPolicy()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
}
