package penalty

import (
	"log/slog"
	"sort"
	"time"

	"github.com/mcoot/chessmatch/internal/dependencies/ticker"
	"github.com/mcoot/chessmatch/internal/model"
)

// Config holds penalty escalation settings
type Config struct {
	// BaseSeconds is the penalty for a first offense
	BaseSeconds int
	// SecondsPerDecline is added for every consecutive offense after the first
	SecondsPerDecline int
}

// DefaultConfig returns the default penalty configuration
func DefaultConfig() Config {
	return Config{
		BaseSeconds:       0,
		SecondsPerDecline: 60,
	}
}

// Duration returns the penalty length in seconds for the given consecutive decline count
func (c Config) Duration(count int) int {
	if count < 1 {
		return 0
	}
	d := c.BaseSeconds + (count-1)*c.SecondsPerDecline
	if d < 0 {
		return 0
	}
	return d
}

type entry struct {
	user        model.Identity
	count       int
	secondsLeft int
	task        ticker.Task
}

func (e *entry) active() bool {
	return e.task != nil
}

// Tracker keeps per-user escalating penalties for sessions that were not accepted.
// It is not safe for concurrent use; the owner serializes access, including the
// scheduler callbacks.
type Tracker struct {
	cfg       Config
	scheduler ticker.Scheduler
	onExpire  func(model.Identity)
	logger    *slog.Logger

	entries map[model.Username]*entry
}

// New creates a Tracker. onExpire is called when a penalty runs out and may be nil.
func New(cfg Config, scheduler ticker.Scheduler, onExpire func(model.Identity), logger *slog.Logger) *Tracker {
	return &Tracker{
		cfg:       cfg,
		scheduler: scheduler,
		onExpire:  onExpire,
		logger:    logger.With(slog.String("component", "penalty")),
		entries:   make(map[model.Username]*entry),
	}
}

// RecordUnacceptedSession escalates the user's penalty and restarts its timer
func (t *Tracker) RecordUnacceptedSession(user model.Identity) {
	e, ok := t.entries[user.Username]
	if !ok {
		e = &entry{}
		t.entries[user.Username] = e
	}
	e.user = user
	e.count++
	t.restart(e)

	t.logger.Info("penalty recorded",
		slog.String("username", string(user.Username)),
		slog.Int("consecutive_declines", e.count),
		slog.Int("seconds", e.secondsLeft))
}

// IsPenalized reports whether the user has a running penalty
func (t *Tracker) IsPenalized(username model.Username) bool {
	e, ok := t.entries[username]
	return ok && e.active()
}

// OnGameAccepted decays the user's decline count by one. An entry whose count
// reaches zero is dropped once its penalty is no longer running.
// Returns true if tracked state changed.
func (t *Tracker) OnGameAccepted(username model.Username) bool {
	e, ok := t.entries[username]
	if !ok || e.count == 0 {
		return false
	}
	e.count--
	if e.count == 0 && !e.active() {
		delete(t.entries, username)
	}
	t.logger.Debug("penalty decayed",
		slog.String("username", string(username)),
		slog.Int("consecutive_declines", e.count))
	return true
}

// Get returns the projection of a tracked user
func (t *Tracker) Get(username model.Username) (model.Penalty, bool) {
	e, ok := t.entries[username]
	if !ok {
		return model.Penalty{}, false
	}
	return e.view(), true
}

// List returns every tracked entry ordered by username
func (t *Tracker) List() []model.Penalty {
	penalties := make([]model.Penalty, 0, len(t.entries))
	for _, e := range t.entries {
		penalties = append(penalties, e.view())
	}
	sort.Slice(penalties, func(i, j int) bool {
		return penalties[i].User.Username < penalties[j].User.Username
	})
	return penalties
}

// Stop cancels every running penalty timer
func (t *Tracker) Stop() {
	for _, e := range t.entries {
		if e.task != nil {
			e.task.Stop()
			e.task = nil
		}
	}
}

func (t *Tracker) restart(e *entry) {
	if e.task != nil {
		e.task.Stop()
		e.task = nil
	}
	e.secondsLeft = t.cfg.Duration(e.count)
	if e.secondsLeft == 0 {
		return
	}
	var task ticker.Task
	task = t.scheduler.Every(time.Second, func() {
		t.tick(e, task)
	})
	e.task = task
}

func (t *Tracker) tick(e *entry, task ticker.Task) {
	// The entry may have been dropped or its timer restarted since this task was scheduled
	if current, ok := t.entries[e.user.Username]; !ok || current != e || e.task != task {
		return
	}
	e.secondsLeft--
	if e.secondsLeft > 0 {
		return
	}

	e.task.Stop()
	e.task = nil
	if e.count == 0 {
		delete(t.entries, e.user.Username)
	}

	t.logger.Info("penalty expired", slog.String("username", string(e.user.Username)))
	if t.onExpire != nil {
		t.onExpire(e.user)
	}
}

func (e *entry) view() model.Penalty {
	return model.Penalty{
		User:                e.user,
		ConsecutiveDeclines: e.count,
		IsActive:            e.active(),
		SecondsLeft:         e.secondsLeft,
	}
}
