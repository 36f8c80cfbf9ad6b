package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const jitterWindow = 250 * time.Millisecond

// backoff doubles from base up to max on consecutive failures.
type backoff struct {
	base, max, cur time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max, cur: base}
}

func (b *backoff) next() time.Duration {
	d := b.cur
	b.cur = min(b.cur*2, b.max)
	return jitter(d)
}

func (b *backoff) idle() time.Duration {
	return jitter(b.base)
}

func (b *backoff) reset() {
	b.cur = b.base
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleep(ctx context.Context, d time.Duration) error {
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
