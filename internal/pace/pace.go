package pace

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Pacer waits between actions.
type Pacer interface {
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
	// Between returns a duration drawn uniformly from [lo, hi].
	Between(lo, hi time.Duration) time.Duration
}

// Real is a Pacer backed by wall-clock timers.
type Real struct{}

// NewReal returns a wall-clock Pacer.
func NewReal() Real {
	return Real{}
}

// Sleep waits for d unless ctx is cancelled first.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Between returns a uniformly random duration in [lo, hi].
func (Real) Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1) //nolint:gosec // jitter, not security
}

// Instant is a Pacer that never blocks. It records requested waits so tests
// and dry runs can inspect the pacing a real run would have used.
type Instant struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

// NewInstant returns a non-blocking Pacer.
func NewInstant() *Instant {
	return &Instant{}
}

// Sleep records d and returns immediately, or the context error if ctx is done.
func (p *Instant) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeps = append(p.sleeps, d)
	return nil
}

// Between returns hi so recorded sleeps show the longest wait a real run could take.
func (p *Instant) Between(lo, hi time.Duration) time.Duration {
	if hi < lo {
		return lo
	}
	return hi
}

// Sleeps returns a copy of the recorded waits.
func (p *Instant) Sleeps() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]time.Duration, len(p.sleeps))
	copy(out, p.sleeps)
	return out
}

// Total returns the sum of recorded waits.
func (p *Instant) Total() time.Duration {
	var total time.Duration
	for _, d := range p.Sleeps() {
		total += d
	}
	return total
}
