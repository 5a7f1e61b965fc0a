package ticker

import (
	"sync"
	"time"
)

// Task is a running periodic callback
type Task interface {
	// Stop prevents any further invocations. It never blocks and may be called more than once.
	Stop()
}

// Scheduler runs callbacks periodically and can be mocked for testing
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

// RealScheduler implements Scheduler with time.Ticker
type RealScheduler struct{}

// New creates a new RealScheduler
func New() *RealScheduler {
	return &RealScheduler{}
}

// Every starts a goroutine calling fn once per interval until the task is stopped
func (s *RealScheduler) Every(interval time.Duration, fn func()) Task {
	t := &task{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type task struct {
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func (t *task) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		case <-t.done:
			return
		}
	}
}

func (t *task) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

// Serialized wraps a scheduler so every callback runs while holding mu.
// Tasks it returns must be stopped with mu held; a tick that was already
// waiting for the lock when its task was stopped is dropped.
func Serialized(inner Scheduler, mu sync.Locker) Scheduler {
	return &serialized{inner: inner, mu: mu}
}

type serialized struct {
	inner Scheduler
	mu    sync.Locker
}

func (s *serialized) Every(interval time.Duration, fn func()) Task {
	t := &guardedTask{}
	t.inner = s.inner.Every(interval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.stopped {
			return
		}
		fn()
	})
	return t
}

type guardedTask struct {
	inner   Task
	stopped bool
}

func (t *guardedTask) Stop() {
	t.stopped = true
	t.inner.Stop()
}
