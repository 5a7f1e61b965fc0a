package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestUsersAreIndexed() {
	s.Require().NoError(s.storage.CreateUser(s.Ctx, storagetest.User("alice", 1200)))

	s.True(s.mini.Exists(userKey("alice")))
	members, err := s.mini.Members(usersIndexKey())
	s.Require().NoError(err)
	s.Equal([]string{"alice"}, members)
}

func (s *StorageSuite) TestGamesAreIndexedForBothPlayers() {
	record := storagetest.Record("game-1", "alice", "bob", 0)
	s.Require().NoError(s.storage.SaveGame(s.Ctx, record))

	for _, username := range []model.Username{"alice", "bob"} {
		members, err := s.mini.ZMembers(userGamesIndexKey(username))
		s.Require().NoError(err)
		s.Equal([]string{gameKey("game-1")}, members)
	}
}

func (s *StorageSuite) TestDuplicateGameIsNotIndexedTwice() {
	s.Require().NoError(s.storage.SaveGame(s.Ctx, storagetest.Record("game-1", "alice", "bob", 0)))
	s.ErrorIs(s.storage.SaveGame(s.Ctx, storagetest.Record("game-1", "carol", "dave", 0)), model.ErrGameExists)

	s.False(s.mini.Exists(userGamesIndexKey("carol")))
}

func (s *StorageSuite) TestListSkipsCorruptEntries() {
	s.Require().NoError(s.storage.SaveGame(s.Ctx, storagetest.Record("game-1", "alice", "bob", 0)))
	s.Require().NoError(s.storage.SaveGame(s.Ctx, storagetest.Record("game-2", "alice", "bob", 1)))
	s.Require().NoError(s.mini.Set(gameKey("game-2"), "not json"))

	games, err := s.storage.ListGamesForUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(games, 1)
	s.Equal(model.SessionID("game-1"), games[0].ID)
}

func (s *StorageSuite) TestConnectionError() {
	s.mini.Close()

	_, err := s.storage.GetUser(s.Ctx, "alice")
	s.Error(err)
	s.NotErrorIs(err, model.ErrUserNotFound)
	s.mini = nil
}
