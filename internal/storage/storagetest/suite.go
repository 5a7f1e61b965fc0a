// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/storage"
)

// Suite runs the common storage tests. Backend suites embed it and set
// Storage in their SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

// baseTime has microsecond precision so every backend round-trips it exactly
var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// User returns a test user
func User(username string, rating int) *model.User {
	return &model.User{
		Username:      model.Username(username),
		PasswordHash:  "$2a$10$hash-" + username,
		Rating:        rating,
		InitialRating: rating,
		CreatedAt:     baseTime,
	}
}

// Record returns a test game record dated offset after a fixed base time
func Record(id, white, black string, offset time.Duration) *model.GameRecord {
	return &model.GameRecord{
		ID:    model.SessionID(id),
		Date:  baseTime.Add(offset),
		White: model.Username(white),
		Black: model.Username(black),
		MovesLog: []model.Move{
			{
				Piece:         model.Piece{ID: 12, Type: "pawn", Color: model.SideWhite},
				FinalPosition: model.Position{Row: 4, Col: 4},
			},
			{
				Piece:         model.Piece{ID: 28, Type: "queen", Color: model.SideBlack, HasMadeAnyMoves: true},
				FinalPosition: model.Position{Row: 7, Col: 5},
				IsCheckmate:   true,
			},
		},
		Result:       model.ResultBlackWin,
		RatingChange: model.RatingChange{White: -25, Black: 25},
	}
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	user := User("alice", 1200)
	s.Require().NoError(s.Storage.CreateUser(s.Ctx, user))

	got, err := s.Storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.Username, got.Username)
	s.Equal(user.PasswordHash, got.PasswordHash)
	s.Equal(1200, got.Rating)
	s.Equal(1200, got.InitialRating)
	s.True(user.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestCreateUserTwiceFails() {
	s.Require().NoError(s.Storage.CreateUser(s.Ctx, User("alice", 1200)))

	err := s.Storage.CreateUser(s.Ctx, User("alice", 1500))
	s.ErrorIs(err, model.ErrUserExists)

	got, err := s.Storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1200, got.Rating)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestListUsersIsSortedByUsername() {
	for _, name := range []string{"carol", "alice", "bob"} {
		s.Require().NoError(s.Storage.CreateUser(s.Ctx, User(name, 1200)))
	}

	users, err := s.Storage.ListUsers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal(model.Username("alice"), users[0].Username)
	s.Equal(model.Username("bob"), users[1].Username)
	s.Equal(model.Username("carol"), users[2].Username)
}

func (s *Suite) TestListUsersEmpty() {
	users, err := s.Storage.ListUsers(s.Ctx)
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *Suite) TestUpdateRating() {
	s.Require().NoError(s.Storage.CreateUser(s.Ctx, User("alice", 1200)))

	updated, err := s.Storage.UpdateRating(s.Ctx, "alice", 25)
	s.Require().NoError(err)
	s.Equal(1225, updated.Rating)

	updated, err = s.Storage.UpdateRating(s.Ctx, "alice", -50)
	s.Require().NoError(err)
	s.Equal(1175, updated.Rating)
	s.Equal(1200, updated.InitialRating)

	got, err := s.Storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1175, got.Rating)
}

func (s *Suite) TestUpdateRatingUnknownUser() {
	_, err := s.Storage.UpdateRating(s.Ctx, "nobody", 25)
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Game history tests

func (s *Suite) TestSaveAndGetGame() {
	record := Record("game-1", "alice", "bob", 0)
	s.Require().NoError(s.Storage.SaveGame(s.Ctx, record))

	got, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(record.ID, got.ID)
	s.True(record.Date.Equal(got.Date))
	s.Equal(record.White, got.White)
	s.Equal(record.Black, got.Black)
	s.Equal(record.MovesLog, got.MovesLog)
	s.Equal(record.Result, got.Result)
	s.Equal(record.RatingChange, got.RatingChange)
}

func (s *Suite) TestSaveGameTwiceFails() {
	s.Require().NoError(s.Storage.SaveGame(s.Ctx, Record("game-1", "alice", "bob", 0)))

	err := s.Storage.SaveGame(s.Ctx, Record("game-1", "carol", "dave", 0))
	s.ErrorIs(err, model.ErrGameExists)

	got, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.Username("alice"), got.White)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.Storage.GetGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestListGamesForUser() {
	s.Require().NoError(s.Storage.SaveGame(s.Ctx, Record("game-3", "alice", "carol", 2*time.Hour)))
	s.Require().NoError(s.Storage.SaveGame(s.Ctx, Record("game-1", "bob", "alice", 0)))
	s.Require().NoError(s.Storage.SaveGame(s.Ctx, Record("game-2", "bob", "carol", time.Hour)))

	games, err := s.Storage.ListGamesForUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(games, 2)
	s.Equal(model.SessionID("game-1"), games[0].ID)
	s.Equal(model.SessionID("game-3"), games[1].ID)
	s.Len(games[0].MovesLog, 2)
}

func (s *Suite) TestListGamesForUserWithoutGames() {
	games, err := s.Storage.ListGamesForUser(s.Ctx, "nobody")
	s.Require().NoError(err)
	s.NotNil(games)
	s.Empty(games)
}
