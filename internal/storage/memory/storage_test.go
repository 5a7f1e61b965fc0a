package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessmatch/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestReturnedUsersAreCopies() {
	user := storagetest.User("alice", 1200)
	s.Require().NoError(s.storage.CreateUser(s.Ctx, user))
	user.Rating = 9999

	got, err := s.storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	got.Rating = 0

	again, err := s.storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1200, again.Rating)
}
