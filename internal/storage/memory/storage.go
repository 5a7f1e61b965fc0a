package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users map[model.Username]*model.User
	games map[model.SessionID]*model.GameRecord
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users: make(map[model.Username]*model.User),
		games: make(map[model.SessionID]*model.GameRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close does nothing
func (s *Storage) Close() error {
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return model.ErrUserExists
	}
	u := *user
	s.users[user.Username] = &u
	return nil
}

func (s *Storage) GetUser(ctx context.Context, username model.Username) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*model.User, 0, len(s.users))
	for _, user := range s.users {
		u := *user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (s *Storage) UpdateRating(ctx context.Context, username model.Username, delta int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user.Rating += delta
	u := *user
	return &u, nil
}

// Game history operations

func (s *Storage) SaveGame(ctx context.Context, record *model.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[record.ID]; ok {
		return model.ErrGameExists
	}
	s.games[record.ID] = copyRecord(record)
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.SessionID) (*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return copyRecord(record), nil
}

func (s *Storage) ListGamesForUser(ctx context.Context, username model.Username) ([]*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := []*model.GameRecord{}
	for _, record := range s.games {
		if record.HasParticipant(username) {
			records = append(records, copyRecord(record))
		}
	}
	storage.SortByDate(records)
	return records, nil
}

func copyRecord(record *model.GameRecord) *model.GameRecord {
	r := *record
	r.MovesLog = append([]model.Move{}, record.MovesLog...)
	return &r
}
