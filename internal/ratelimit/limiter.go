package ratelimit

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum delay between outbound marketplace requests. One
// gate per client; no state is shared across runs.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate builds a gate with the given minimum interval between calls.
func NewGate(minDelay time.Duration) *Gate {
	return &Gate{limiter: rate.NewLimiter(rate.Every(minDelay), 1)}
}

// Wait blocks until the next request is allowed.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// Backoff tracks reactive exponential backoff for HTTP 429 responses:
// jitter-free doubling from the initial delay up to the cap.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

// NewBackoff builds a backoff doubling from initial to max.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{initial: initial, max: max, next: initial}
}

// Next returns the delay to sleep before the next retry and advances the
// doubling schedule.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset rewinds the schedule after a successful request.
func (b *Backoff) Reset() {
	b.next = b.initial
}

// ParseResetHint interprets a rate-limit reset header, which servers send
// either as an absolute epoch timestamp or as relative seconds. Returns
// zero when the hint is absent or unusable.
func ParseResetHint(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}
	v, err := strconv.ParseInt(header, 10, 64)
	if err != nil || v <= 0 {
		return 0
	}
	// Values larger than a year's worth of seconds are epoch timestamps.
	if v > 365*24*3600 {
		d := time.Unix(v, 0).Sub(now)
		if d < 0 {
			return 0
		}
		return d
	}
	return time.Duration(v) * time.Second
}
