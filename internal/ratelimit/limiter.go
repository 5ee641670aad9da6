// Package ratelimit enforces the call budget against the upstream API.
//
// The provider allows 1000 calls per rolling hour; the limiter defaults to a
// ceiling of 900 to keep a safety margin. A secondary pacer spaces
// consecutive calls so a burst cannot trip the provider's short-term
// throttling even while the hourly budget has room.
//
// Resume policy: a resumed run always starts a fresh window instead of
// reconstructing call timing from the checkpoint. Stale timestamps could
// silently under- or over-count the budget; restarting the window is
// conservative and at worst delays the first calls of a resumed run.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures a Limiter.
type Config struct {
	// Ceiling is the maximum number of calls per window.
	// Default: 900 (provider hard limit is 1000).
	Ceiling int

	// Window is the rolling period the ceiling applies to.
	// Default: 1 hour.
	Window time.Duration

	// PaceInterval is the minimum spacing between consecutive calls.
	// Default: 100ms.
	PaceInterval time.Duration
}

// DefaultConfig returns the production limiter configuration.
func DefaultConfig() *Config {
	return &Config{
		Ceiling:      900,
		Window:       time.Hour,
		PaceInterval: 100 * time.Millisecond,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.Ceiling == 0 {
		c.Ceiling = defaults.Ceiling
	}
	if c.Window == 0 {
		c.Window = defaults.Window
	}
	if c.PaceInterval == 0 {
		c.PaceInterval = defaults.PaceInterval
	}
}

// Limiter tracks calls within a rolling window against a fixed ceiling.
// All methods are safe for concurrent use, though the pipeline drives it
// from a single goroutine.
type Limiter struct {
	config *Config
	logger *zap.Logger
	pacer  *rate.Limiter

	mu          sync.Mutex
	windowStart time.Time
	calls       int
	lastCall    time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter with a fresh window.
func NewLimiter(cfg *Config, logger *zap.Logger) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Limiter{
		config: cfg,
		logger: logger,
		pacer:  rate.NewLimiter(rate.Every(cfg.PaceInterval), 1),
		now:    time.Now,
	}
}

// resetIfElapsed starts a new window when the current one has expired.
// Caller must hold mu.
func (l *Limiter) resetIfElapsed(now time.Time) {
	if l.calls == 0 || now.Sub(l.windowStart) >= l.config.Window {
		l.windowStart = now
		l.calls = 0
	}
}

// CanCall reports whether the current window has remaining capacity.
func (l *Limiter) CanCall() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfElapsed(l.now())
	return l.calls < l.config.Ceiling
}

// RecordCall counts one outbound call against the current window.
func (l *Limiter) RecordCall(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfElapsed(t)
	if l.calls == 0 {
		l.windowStart = t
	}
	l.calls++
	l.lastCall = t
}

// Wait blocks until the window has capacity and the pacer allows the next
// call. The window wait is a single timer sleep until the window expires,
// not a poll loop.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.resetIfElapsed(now)
		if l.calls < l.config.Ceiling {
			l.mu.Unlock()
			break
		}
		remaining := l.windowStart.Add(l.config.Window).Sub(now)
		l.mu.Unlock()

		l.logger.Info("rate limit ceiling reached, waiting for window reset",
			zap.Int("ceiling", l.config.Ceiling),
			zap.Duration("remaining", remaining),
		)

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limit wait canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	if err := l.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait canceled: %w", err)
	}
	return nil
}

// Snapshot returns the current window start, in-window call count and the
// last call time. Used to persist quota state into the checkpoint for
// operator inspection; it is never used to seed a resumed window.
func (l *Limiter) Snapshot() (windowStart time.Time, calls int, lastCall time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windowStart, l.calls, l.lastCall
}
