package response

import (
	"time"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/users"
)

// User represents a user profile in API responses
type User struct {
	Username      string    `json:"username"`
	Rating        int       `json:"rating"`
	InitialRating int       `json:"initial_rating"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserFromModel converts a model.User, leaving out credentials
func UserFromModel(u *model.User) User {
	return User{
		Username:      string(u.Username),
		Rating:        u.Rating,
		InitialRating: u.InitialRating,
		CreatedAt:     u.CreatedAt,
	}
}

// UserList is the response for listing users
type UserList struct {
	Users []User `json:"users"`
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewAuthResponse creates an AuthResponse from a session and its user
func NewAuthResponse(s *users.Session, u *model.User) AuthResponse {
	return AuthResponse{
		User:         UserFromModel(u),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// GameSummary is a finished game without its move log
type GameSummary struct {
	ID           string             `json:"id"`
	Date         time.Time          `json:"date"`
	White        string             `json:"white"`
	Black        string             `json:"black"`
	Result       string             `json:"result"`
	RatingChange model.RatingChange `json:"rating_change"`
	Moves        int                `json:"moves"`
}

// GameSummaryFromModel converts model.GameRecord
func GameSummaryFromModel(g *model.GameRecord) GameSummary {
	return GameSummary{
		ID:           string(g.ID),
		Date:         g.Date,
		White:        string(g.White),
		Black:        string(g.Black),
		Result:       string(g.Result),
		RatingChange: g.RatingChange,
		Moves:        len(g.MovesLog),
	}
}

// GameList is the response for listing a user's games
type GameList struct {
	Games []GameSummary `json:"games"`
}

// Health is the response of the health endpoint
type Health struct {
	Status string `json:"status"`
}
