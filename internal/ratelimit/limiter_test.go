package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 900, cfg.Ceiling)
	assert.Equal(t, time.Hour, cfg.Window)
	assert.Equal(t, 100*time.Millisecond, cfg.PaceInterval)
}

func TestApplyDefaults_PartialConfig(t *testing.T) {
	cfg := &Config{Ceiling: 10}
	cfg.ApplyDefaults()

	assert.Equal(t, 10, cfg.Ceiling)
	assert.Equal(t, time.Hour, cfg.Window)
	assert.Equal(t, 100*time.Millisecond, cfg.PaceInterval)
}

func TestCanCall_UnderCeiling(t *testing.T) {
	l := NewLimiter(&Config{Ceiling: 3, Window: time.Hour, PaceInterval: time.Nanosecond}, nil)

	now := time.Now()
	assert.True(t, l.CanCall())

	l.RecordCall(now)
	l.RecordCall(now)
	assert.True(t, l.CanCall())

	l.RecordCall(now)
	assert.False(t, l.CanCall())
}

func TestCanCall_WindowReset(t *testing.T) {
	l := NewLimiter(&Config{Ceiling: 2, Window: time.Hour, PaceInterval: time.Nanosecond}, nil)

	base := time.Now()
	l.now = func() time.Time { return base }

	l.RecordCall(base)
	l.RecordCall(base)
	assert.False(t, l.CanCall())

	// Advance past the window: capacity returns.
	l.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	assert.True(t, l.CanCall())
}

func TestRecordCall_ResetsExpiredWindow(t *testing.T) {
	l := NewLimiter(&Config{Ceiling: 5, Window: time.Hour, PaceInterval: time.Nanosecond}, nil)

	base := time.Now()
	l.RecordCall(base)
	l.RecordCall(base.Add(time.Minute))

	_, calls, _ := l.Snapshot()
	assert.Equal(t, 2, calls)

	// A call after the window expires starts a new window of one call.
	l.RecordCall(base.Add(2 * time.Hour))
	start, calls, last := l.Snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, base.Add(2*time.Hour), start)
	assert.Equal(t, base.Add(2*time.Hour), last)
}

func TestWait_ReturnsImmediatelyWithCapacity(t *testing.T) {
	l := NewLimiter(&Config{Ceiling: 10, Window: time.Hour, PaceInterval: time.Nanosecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, l.Wait(ctx))
}

func TestWait_BlocksUntilWindowReset(t *testing.T) {
	l := NewLimiter(&Config{Ceiling: 1, Window: 50 * time.Millisecond, PaceInterval: time.Nanosecond}, nil)

	l.RecordCall(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWait_CanceledWhileExhausted(t *testing.T) {
	l := NewLimiter(&Config{Ceiling: 1, Window: time.Hour, PaceInterval: time.Nanosecond}, nil)

	l.RecordCall(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCeilingNeverExceededWithinWindow(t *testing.T) {
	const ceiling = 25
	l := NewLimiter(&Config{Ceiling: ceiling, Window: time.Hour, PaceInterval: time.Nanosecond}, nil)

	now := time.Now()
	granted := 0
	for i := 0; i < ceiling*2; i++ {
		if !l.CanCall() {
			break
		}
		l.RecordCall(now.Add(time.Duration(i) * time.Second))
		granted++
	}

	assert.Equal(t, ceiling, granted)
}
