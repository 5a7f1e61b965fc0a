package matchmaking

import (
	"container/list"

	"github.com/mcoot/chessmatch/internal/model"
)

// Unbounded disables the rating difference limit
const Unbounded = -1

// Config holds matchmaking settings
type Config struct {
	// MaxRatingDifference is the largest rating gap two players can be matched across.
	// Unbounded (or any negative value) matches regardless of rating.
	MaxRatingDifference int
}

// DefaultConfig returns the default matchmaking configuration
func DefaultConfig() Config {
	return Config{
		MaxRatingDifference: Unbounded,
	}
}

// PenaltyChecker reports whether a user is currently barred from matchmaking
type PenaltyChecker interface {
	IsPenalized(username model.Username) bool
}

// Queue holds users waiting for an opponent in arrival order.
// It is not safe for concurrent use; the owner serializes access.
//
// Matching is first-match-wins: the oldest compatible entry is returned
// without looking for a closer rating further down the queue.
type Queue struct {
	cfg       Config
	penalties PenaltyChecker
	entries   *list.List
	index     map[model.Username]*list.Element
}

// New creates an empty Queue. penalties may be nil.
func New(cfg Config, penalties PenaltyChecker) *Queue {
	return &Queue{
		cfg:       cfg,
		penalties: penalties,
		entries:   list.New(),
		index:     make(map[model.Username]*list.Element),
	}
}

// Enqueue appends the identity. Returns false if the user is already queued.
func (q *Queue) Enqueue(identity model.Identity) bool {
	if _, ok := q.index[identity.Username]; ok {
		return false
	}
	q.index[identity.Username] = q.entries.PushBack(identity)
	return true
}

// Remove drops the user from the queue. Returns false if they were not queued.
func (q *Queue) Remove(username model.Username) bool {
	el, ok := q.index[username]
	if !ok {
		return false
	}
	q.entries.Remove(el)
	delete(q.index, username)
	return true
}

// Contains reports whether the user is queued
func (q *Queue) Contains(username model.Username) bool {
	_, ok := q.index[username]
	return ok
}

// Len returns the number of queued users
func (q *Queue) Len() int {
	return q.entries.Len()
}

// List returns the queued identities in arrival order
func (q *Queue) List() []model.Identity {
	identities := make([]model.Identity, 0, q.entries.Len())
	for el := q.entries.Front(); el != nil; el = el.Next() {
		identities = append(identities, el.Value.(model.Identity))
	}
	return identities
}

// FindCompatible returns the oldest queued opponent for identity. The queue is not modified.
func (q *Queue) FindCompatible(identity model.Identity) (model.Identity, bool) {
	for el := q.entries.Front(); el != nil; el = el.Next() {
		candidate := el.Value.(model.Identity)
		if q.compatible(identity, candidate) {
			return candidate, true
		}
	}
	return model.Identity{}, false
}

func (q *Queue) compatible(a, b model.Identity) bool {
	if a.Username == b.Username {
		return false
	}
	if q.penalties != nil && q.penalties.IsPenalized(b.Username) {
		return false
	}
	if q.cfg.MaxRatingDifference < 0 {
		return true
	}
	diff := a.Rating - b.Rating
	if diff < 0 {
		diff = -diff
	}
	return diff <= q.cfg.MaxRatingDifference
}
