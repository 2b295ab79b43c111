package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Per-method Gmail API costs in quota units. The per-user allowance is
// 250 units/second; both calls we issue cost 5.
const (
	UnitsList = 5
	UnitsGet  = 5
)

// Limiter paces outbound API calls against the per-user quota allowance.
// units is the quota cost of the call about to be made.
type Limiter interface {
	Wait(ctx context.Context, units int) error
}

// QuotaLimiter grants quota units at a fixed per-second rate with a burst
// allowance of one second's worth, so a fresh limiter never delays the first
// page. It keeps no background goroutine: elapsed time is credited at call
// time, and callers sleep off any deficit themselves.
type QuotaLimiter struct {
	mu        sync.Mutex
	perSecond float64
	burst     float64
	available float64
	last      time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewQuotaLimiter returns a limiter granting unitsPerSecond quota units per
// second.
func NewQuotaLimiter(unitsPerSecond int) *QuotaLimiter {
	if unitsPerSecond <= 0 {
		unitsPerSecond = UnitsGet
	}
	l := &QuotaLimiter{
		perSecond: float64(unitsPerSecond),
		burst:     float64(unitsPerSecond),
		now:       time.Now,
		sleep:     sleepCtx,
	}
	l.available = l.burst
	l.last = l.now()
	return l
}

// Wait blocks until units of quota are available or the context is canceled.
// A cost larger than the burst is clamped to it, so a single oversized call
// cannot stall forever. Units are debited even when the wait is canceled.
func (l *QuotaLimiter) Wait(ctx context.Context, units int) error {
	if units <= 0 {
		return nil
	}
	cost := float64(units)
	if cost > l.burst {
		cost = l.burst
	}

	l.mu.Lock()
	now := l.now()
	l.available += now.Sub(l.last).Seconds() * l.perSecond
	if l.available > l.burst {
		l.available = l.burst
	}
	l.last = now
	l.available -= cost
	var wait time.Duration
	if l.available < 0 {
		wait = time.Duration(-l.available / l.perSecond * float64(time.Second))
	}
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	if err := l.sleep(ctx, wait); err != nil {
		return fmt.Errorf("quota wait canceled: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ Limiter = (*QuotaLimiter)(nil)
