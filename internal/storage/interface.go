package storage

import (
	"context"

	"github.com/mcoot/chessmatch/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, username model.Username) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	// UpdateRating adds delta to the user's rating and returns the updated user
	UpdateRating(ctx context.Context, username model.Username, delta int) (*model.User, error)

	// Game history operations
	SaveGame(ctx context.Context, record *model.GameRecord) error
	GetGame(ctx context.Context, id model.SessionID) (*model.GameRecord, error)
	// ListGamesForUser returns the user's finished games, oldest first
	ListGamesForUser(ctx context.Context, username model.Username) ([]*model.GameRecord, error)

	Close() error
}
