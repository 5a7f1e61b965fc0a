package ticker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealSchedulerTicksUntilStopped(t *testing.T) {
	var calls atomic.Int32
	task := New().Every(5*time.Millisecond, func() {
		calls.Add(1)
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	task.Stop()
	task.Stop()
	stoppedAt := calls.Load()
	time.Sleep(30 * time.Millisecond)

	// At most one tick can already be in flight when Stop is called
	assert.LessOrEqual(t, calls.Load(), stoppedAt+1)
}

func TestSerializedRunsCallbackUnderLock(t *testing.T) {
	var mu sync.Mutex
	ticks := make(chan bool, 1)

	task := Serialized(New(), &mu).Every(5*time.Millisecond, func() {
		// TryLock fails while the wrapper holds the lock
		held := !mu.TryLock()
		if !held {
			mu.Unlock()
		}
		select {
		case ticks <- held:
		default:
		}
	})

	select {
	case held := <-ticks:
		assert.True(t, held)
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}

	mu.Lock()
	task.Stop()
	mu.Unlock()
}

func TestSerializedDropsTickAfterStop(t *testing.T) {
	var mu sync.Mutex
	var calls atomic.Int32

	mu.Lock()
	task := Serialized(New(), &mu).Every(time.Millisecond, func() {
		calls.Add(1)
	})
	// Let the ticker fire while the lock is held, then stop before releasing it
	time.Sleep(10 * time.Millisecond)
	task.Stop()
	mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
