package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/chessmatch/internal/dependencies/clock"
	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("username must be 3-20 letters or digits")
	ErrInvalidPassword    = errors.New("password must be 8-20 characters")
	ErrInvalidRating      = errors.New("rating must be between 600 and 2000")
)

// Registration limits
const (
	MinRating     = 600
	MaxRating     = 2000
	DefaultRating = 1200

	minPasswordLength = 8
	maxPasswordLength = 20
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,20}$`)

// Session represents an authenticated session
type Session struct {
	Token     string
	Username  model.Username
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Config holds configuration for the users service
type Config struct {
	SessionDuration time.Duration
	// BcryptCost is the password hashing cost
	BcryptCost int
}

// DefaultConfig returns default users configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// Service handles registration, authentication and profile lookups
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates a new users Service
func New(storage storage.Storage, clock clock.Clock, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Register creates a user account and a session for it. A zero rating
// registers the user at DefaultRating.
func (s *Service) Register(ctx context.Context, username, password string, rating int) (*Session, *model.User, error) {
	if rating == 0 {
		rating = DefaultRating
	}
	if err := validate(username, password, rating); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, nil, err
	}

	user := &model.User{
		Username:      model.Username(username),
		PasswordHash:  string(hash),
		Rating:        rating,
		InitialRating: rating,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserExists) {
			return nil, nil, ErrUsernameExists
		}
		return nil, nil, err
	}

	return s.createSession(user.Username), user, nil
}

// Login authenticates a user and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, *model.User, error) {
	user, err := s.storage.GetUser(ctx, model.Username(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	return s.createSession(user.Username), user, nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// CurrentUser returns the stored profile for a session token
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	session, err := s.ValidateSession(token)
	if err != nil {
		return nil, err
	}
	user, err := s.storage.GetUser(ctx, session.Username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return user, nil
}

// Authenticate resolves a session token to the identity used for matchmaking,
// with the user's current rating
func (s *Service) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return model.Identity{}, err
	}
	return user.Identity(), nil
}

// GetUser returns a user's profile
func (s *Service) GetUser(ctx context.Context, username model.Username) (*model.User, error) {
	return s.storage.GetUser(ctx, username)
}

// ListUsers returns every user ordered by username
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.storage.ListUsers(ctx)
}

// GamesForUser returns the user's finished games, oldest first
func (s *Service) GamesForUser(ctx context.Context, username model.Username) ([]*model.GameRecord, error) {
	return s.storage.ListGamesForUser(ctx, username)
}

// Game returns a finished game. Only its participants may see it.
func (s *Service) Game(ctx context.Context, username model.Username, id model.SessionID) (*model.GameRecord, error) {
	record, err := s.storage.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.HasParticipant(username) {
		return nil, model.ErrGameNotFound
	}
	return record, nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}

// createSession creates a new session for a user
func (s *Service) createSession(username model.Username) *Session {
	now := s.clock.Now()
	session := &Session{
		Token:     generateToken("sess_"),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session
}

func validate(username, password string, rating int) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	if n := len([]rune(password)); n < minPasswordLength || n > maxPasswordLength {
		return ErrInvalidPassword
	}
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// generateToken generates a random token with a prefix
func generateToken(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
