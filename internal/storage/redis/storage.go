package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, userKey(user.Username), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrUserExists
	}
	return s.client.SAdd(ctx, usersIndexKey(), string(user.Username)).Err()
}

func (s *Storage) GetUser(ctx context.Context, username model.Username) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	usernames, err := s.client.SMembers(ctx, usersIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(usernames) == 0 {
		return []*model.User{}, nil
	}

	keys := make([]string, len(usernames))
	for i, u := range usernames {
		keys[i] = userKey(model.Username(u))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var user model.User
		if err := json.Unmarshal([]byte(str), &user); err != nil {
			continue // Skip invalid data
		}
		users = append(users, &user)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (s *Storage) UpdateRating(ctx context.Context, username model.Username, delta int) (*model.User, error) {
	key := userKey(username)
	var updated model.User

	// Read-modify-write under WATCH so concurrent updates are never lost
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrUserNotFound
			}
			return err
		}
		if err := json.Unmarshal(data, &updated); err != nil {
			return err
		}
		updated.Rating += delta

		out, err := json.Marshal(&updated)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return &updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to update rating of %s: too many concurrent updates", username)
}

// Game history operations

func (s *Storage) SaveGame(ctx context.Context, record *model.GameRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	key := gameKey(record.ID)
	created, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrGameExists
	}

	score := float64(record.Date.UnixMilli())
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, userGamesIndexKey(record.White), redis.Z{Score: score, Member: key})
	pipe.ZAdd(ctx, userGamesIndexKey(record.Black), redis.Z{Score: score, Member: key})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.SessionID) (*model.GameRecord, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}

	var record model.GameRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Storage) ListGamesForUser(ctx context.Context, username model.Username) ([]*model.GameRecord, error) {
	keys, err := s.client.ZRange(ctx, userGamesIndexKey(username), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []*model.GameRecord{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*model.GameRecord, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var record model.GameRecord
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			continue // Skip invalid data
		}
		records = append(records, &record)
	}

	// Scores only have millisecond precision
	storage.SortByDate(records)
	return records, nil
}
