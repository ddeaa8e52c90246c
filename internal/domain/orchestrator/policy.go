package orchestrator

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/okian/promptmatch/internal/domain/provider"
)

// Policy bounds every provider call.
type Policy struct {
	// Timeout applies to each attempt.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after the first, transient errors only.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter is the upper bound of the random delay added to every backoff.
	Jitter time.Duration
}

// DefaultPolicy is 15s per attempt, two retries, 1s doubling to 4s, plus up to 250ms.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   4 * time.Second,
		Jitter:     250 * time.Millisecond,
	}
}

// Backoff returns the delay before retry number retry (0-based).
// A server Retry-After longer than the computed delay wins, still capped by MaxDelay.
func (p Policy) Backoff(retry int, lastErr error) time.Duration {
	d := p.BaseDelay << min(retry, 30)
	if d < 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		d = p.MaxDelay
	}
	if ra := provider.RetryAfterOf(lastErr); ra > d {
		d = ra
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.Jitter)))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
