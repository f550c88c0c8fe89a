package countdown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	ticks    []time.Duration
	finished atomic.Int32
	resets   []time.Duration
}

func (r *recorder) attach(c *Countdown) {
	c.OnTick(func(d time.Duration) {
		r.mu.Lock()
		r.ticks = append(r.ticks, d)
		r.mu.Unlock()
	})
	c.OnFinished(func() { r.finished.Add(1) })
	c.OnReset(func(d time.Duration) {
		r.mu.Lock()
		r.resets = append(r.resets, d)
		r.mu.Unlock()
	})
}

func (r *recorder) snapshot() ([]time.Duration, []time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.ticks...), append([]time.Duration(nil), r.resets...)
}

func TestCountdown_FullRunFinishesOnce(t *testing.T) {
	c := New(Options{Duration: 60 * time.Millisecond})
	defer c.Close()
	var r recorder
	r.attach(c)

	assert.Equal(t, 60*time.Millisecond, c.Remaining())
	c.Start()
	assert.True(t, c.Running())

	require.Eventually(t, func() bool { return r.finished.Load() == 1 }, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), r.finished.Load())
	assert.False(t, c.Running())
	assert.Equal(t, time.Duration(0), c.Remaining())

	ticks, resets := r.snapshot()
	require.NotEmpty(t, ticks)
	assert.Empty(t, resets)
	assert.Equal(t, time.Duration(0), ticks[len(ticks)-1])
	for i := 1; i < len(ticks); i++ {
		assert.LessOrEqual(t, ticks[i], ticks[i-1], "remaining must not increase")
	}
}

func TestCountdown_StopBeforeExpiry(t *testing.T) {
	c := New(Options{Duration: 80 * time.Millisecond})
	defer c.Close()
	var r recorder
	r.attach(c)

	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Stop()
	time.Sleep(150 * time.Millisecond)

	_, resets := r.snapshot()
	assert.Equal(t, []time.Duration{80 * time.Millisecond}, resets)
	assert.Equal(t, int32(0), r.finished.Load())
	assert.Equal(t, 80*time.Millisecond, c.Remaining())
	assert.False(t, c.Running())
}

func TestCountdown_StopWhenIdleIsNoop(t *testing.T) {
	c := New(Options{Duration: 20 * time.Millisecond})
	defer c.Close()
	var r recorder
	r.attach(c)

	c.Stop()
	_, resets := r.snapshot()
	assert.Empty(t, resets)
}

func TestCountdown_ResetRestarts(t *testing.T) {
	c := New(Options{Duration: 100 * time.Millisecond})
	defer c.Close()
	var r recorder
	r.attach(c)

	c.Start()
	time.Sleep(60 * time.Millisecond)
	c.Reset()
	assert.Greater(t, c.Remaining(), 60*time.Millisecond)

	require.Eventually(t, func() bool { return r.finished.Load() == 1 }, 2*time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), r.finished.Load())
}

func TestCountdown_TicksAreThrottled(t *testing.T) {
	c := New(Options{Duration: 100 * time.Millisecond, TickInterval: 20 * time.Millisecond})
	defer c.Close()
	var r recorder
	r.attach(c)

	c.Start()
	require.Eventually(t, func() bool { return r.finished.Load() == 1 }, 2*time.Second, time.Millisecond)

	ticks, _ := r.snapshot()
	// 100ms at one tick per 20ms plus the final zero.
	assert.LessOrEqual(t, len(ticks), 7)
}

func TestCountdown_CloseIsIdempotent(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultDuration, c.Duration())
	c.Start()
	c.Close()
	c.Close()
	assert.False(t, c.Running())
}
