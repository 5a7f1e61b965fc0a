package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/chessmatch/internal/dependencies/random"
)

// MockRandom returns queued values from Intn, then 0 once the queue is empty.
// Session coin flips are the main consumer: queue 1 to swap the sides.
type MockRandom struct {
	mu      sync.Mutex
	results []int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn pops the next queued value. A queued value outside [0, n) is a
// broken test setup and panics.
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.results) == 0 {
		return 0
	}
	result := r.results[0]
	r.results = r.results[1:]
	if result < 0 || result >= n {
		panic(fmt.Sprintf("mocks: queued Intn value %d outside [0, %d)", result, n))
	}
	return result
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, values...)
}
