// Package ratelimit implements per-account admission control for provider
// calls. Usage is tracked as a weighted score over a rolling window: reads
// cost 1, writes cost 3. When an account's score would exceed its tier
// budget the call is rejected and the account is blocked for the tier's
// block duration.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Tier string

const (
	TierDevelopment Tier = "development"
	TierStandard    Tier = "standard"
)

const (
	ReadWeight  = 1
	WriteWeight = 3

	windowLength = 5 * time.Minute

	devBudget = 60
	devBlock  = 5 * time.Minute

	stdBudget = 9000
	stdBlock  = time.Minute
)

// Error is returned when an account is over budget. RetryAfter tells the
// caller how long to wait before the account is admitted again.
type Error struct {
	AccountID  string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.AccountID, e.RetryAfter.Round(time.Second))
}

// RetryAfterHint lets the retry engine honor the block duration instead of
// its own computed backoff.
func (e *Error) RetryAfterHint() (time.Duration, bool) {
	return e.RetryAfter, true
}

type usageWindow struct {
	score        int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// Limiter holds the account -> usage window map. It is an explicitly owned
// value passed to the API client at construction time, never a package
// global, so tests get isolated instances.
type Limiter struct {
	mu      sync.Mutex
	tier    Tier
	windows map[string]*usageWindow

	now func() time.Time
}

func New(tier Tier) *Limiter {
	if tier != TierDevelopment && tier != TierStandard {
		tier = TierDevelopment
	}
	return &Limiter{
		tier:    tier,
		windows: make(map[string]*usageWindow),
		now:     time.Now,
	}
}

func (l *Limiter) budget() int {
	if l.tier == TierStandard {
		return stdBudget
	}
	return devBudget
}

func (l *Limiter) blockDuration() time.Duration {
	if l.tier == TierStandard {
		return stdBlock
	}
	return devBlock
}

// Check admits or rejects one call for accountID. On admission the account's
// score is incremented by the call weight. Check never performs network I/O;
// it is invoked immediately before dispatch.
func (l *Limiter) Check(accountID string, isWrite bool) error {
	weight := ReadWeight
	if isWrite {
		weight = WriteWeight
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[accountID]
	if !ok {
		w = &usageWindow{windowStart: now}
		l.windows[accountID] = w
	}
	w.lastSeen = now

	// Wholesale reset once the window elapses. A burst straight after the
	// boundary is allowed, matching the provider's published accounting.
	if now.Sub(w.windowStart) > windowLength {
		w.score = 0
		w.windowStart = now
		w.blockedUntil = time.Time{}
	}

	if w.blockedUntil.After(now) {
		return &Error{AccountID: accountID, RetryAfter: w.blockedUntil.Sub(now)}
	}

	if w.score+weight > l.budget() {
		w.blockedUntil = now.Add(l.blockDuration())
		return &Error{AccountID: accountID, RetryAfter: l.blockDuration()}
	}

	w.score += weight
	return nil
}

// Score reports the current window score for an account. Mainly for
// observability and tests.
func (l *Limiter) Score(accountID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[accountID]
	if !ok {
		return 0
	}
	return w.score
}

// StartJanitor periodically drops windows that have been idle for longer
// than a full window plus the block duration. The map is a cache, not a
// source of truth, so losing an entry only forgets spent budget.
func (l *Limiter) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.sweep()
			}
		}
	}()
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-(windowLength + l.blockDuration()))
	for id, w := range l.windows {
		if w.lastSeen.Before(cutoff) {
			delete(l.windows, id)
		}
	}
}
