package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/chessmatch/internal/dependencies/ticker"
)

// MockScheduler is a Scheduler whose tasks only run when Tick is called
type MockScheduler struct {
	mu    sync.Mutex
	tasks []*MockTask
}

// Ensure MockScheduler implements Scheduler
var _ ticker.Scheduler = (*MockScheduler)(nil)

// MockTask is a task registered with a MockScheduler
type MockTask struct {
	Interval time.Duration

	fn      func()
	owner   *MockScheduler
	stopped bool
}

// NewMockScheduler creates a new MockScheduler
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{}
}

// Every registers fn; it runs once per call to Tick
func (s *MockScheduler) Every(interval time.Duration, fn func()) ticker.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &MockTask{Interval: interval, fn: fn, owner: s}
	s.tasks = append(s.tasks, t)
	return t
}

// Stop marks the task as stopped
func (t *MockTask) Stop() {
	t.owner.mu.Lock()
	t.stopped = true
	t.owner.mu.Unlock()
}

// Stopped reports whether the task has been stopped
func (t *MockTask) Stopped() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.stopped
}

// Tick fires every live task once, in registration order.
// Tasks registered during the tick first fire on the next one.
func (s *MockScheduler) Tick() {
	s.mu.Lock()
	live := make([]*MockTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.tasks = live
	snapshot := append([]*MockTask(nil), live...)
	s.mu.Unlock()

	for _, t := range snapshot {
		if t.Stopped() {
			continue
		}
		t.fn()
	}
}

// TickN calls Tick n times
func (s *MockScheduler) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// Active returns the number of tasks that have not been stopped
func (s *MockScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.tasks {
		if !t.stopped {
			count++
		}
	}
	return count
}
