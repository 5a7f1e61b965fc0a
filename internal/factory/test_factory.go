package factory

import (
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/chessmatch/internal/dependencies/mocks"
	"github.com/mcoot/chessmatch/internal/events"
	"github.com/mcoot/chessmatch/internal/services/gateway"
	"github.com/mcoot/chessmatch/internal/services/users"
	"github.com/mcoot/chessmatch/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockRandom    *mocks.MockRandom
	MockScheduler *mocks.MockScheduler
}

// NewTestApp creates an App configured for testing with mocked dependencies
// and in-memory storage
func NewTestApp(gatewayCfg gateway.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockScheduler := mocks.NewMockScheduler()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	usersCfg := users.DefaultConfig()
	usersCfg.BcryptCost = bcrypt.MinCost

	app := newWithDependencies(store, events.Nop{}, mockClock, mockRandom, mockScheduler, usersCfg, gatewayCfg, logger)

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MockScheduler: mockScheduler,
	}
}
