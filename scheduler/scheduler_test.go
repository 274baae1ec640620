package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddTicker_RunsRepeatedly(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int64
	s.AddTicker("tick", 10*time.Millisecond, func() {
		atomic.AddInt64(&count, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) >= 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"tick"}, s.ListTickers())
}

func TestAddDelay_FiresOnce(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int64
	s.AddDelay("boom", 10*time.Millisecond, func() {
		atomic.AddInt64(&count, 1)
	})
	assert.Equal(t, 1, s.PendingDelays())

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&count))
	assert.Equal(t, 0, s.PendingDelays())
}

func TestRemove_CancelsPendingDelay(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var fired int64
	s.AddDelay("later", 30*time.Millisecond, func() {
		atomic.AddInt64(&fired, 1)
	})
	s.Remove("later")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&fired), "cancelled delay must not fire")
	assert.Equal(t, 0, s.PendingDelays())
}

func TestRemove_StopsTicker(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int64
	s.AddTicker("tick", 10*time.Millisecond, func() {
		atomic.AddInt64(&count, 1)
	})
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) >= 1
	}, time.Second, 5*time.Millisecond)

	s.Remove("tick")
	snapshot := atomic.LoadInt64(&count)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt64(&count), snapshot+1)
	assert.Empty(t, s.ListTickers())
}

func TestTaskPanicIsRecovered(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var after int64
	s.AddDelay("bad", 5*time.Millisecond, func() {
		panic("task exploded")
	})
	s.AddDelay("good", 20*time.Millisecond, func() {
		atomic.AddInt64(&after, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&after) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStop_CancelsEverything(t *testing.T) {
	s := New(zap.NewNop())

	var fired int64
	s.AddDelay("pending", 50*time.Millisecond, func() {
		atomic.AddInt64(&fired, 1)
	})
	s.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&fired))
}
