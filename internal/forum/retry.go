package forum

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how the client backs off on rate limiting and server
// faults. The wait before attempt k is Base*Factor^(k-1), capped at Ceiling,
// plus up to Jitter of random spread so synchronized clients do not stampede
// the forum the moment a 429 window closes.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Factor   float64
	Ceiling  time.Duration
	Jitter   time.Duration
}

// DefaultRetryPolicy mirrors the backoff the panel has always used against
// the forum: 4 attempts, 600ms doubling by 1.6 up to 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 4,
		Base:     600 * time.Millisecond,
		Factor:   1.6,
		Ceiling:  4 * time.Second,
		Jitter:   250 * time.Millisecond,
	}
}

// normalize fills zero fields with defaults so a partially configured policy
// still terminates.
func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.Base <= 0 {
		p.Base = def.Base
	}
	if p.Factor < 1 {
		p.Factor = def.Factor
	}
	if p.Ceiling <= 0 {
		p.Ceiling = def.Ceiling
	}
	return p
}

// Delay returns the wait before retrying after the given zero-based attempt.
// It is non-decreasing in the attempt number and bounded by Ceiling plus
// jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := time.Duration(float64(p.Base) * pow(p.Factor, attempt))
	if d > p.Ceiling {
		d = p.Ceiling
	}
	if p.Jitter > 0 {
		d += rand.N(p.Jitter)
	}
	return d
}

// pow avoids pulling in math.Pow for small integer exponents.
func pow(f float64, n int) float64 {
	out := 1.0
	for range n {
		out *= f
	}
	return out
}

// sleepFunc waits for d or until the context is canceled. Injectable so
// tests can record delays instead of serving them.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
