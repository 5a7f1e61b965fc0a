package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/chessmatch/internal/api/apierr"
	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/users"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionValidator resolves bearer tokens to sessions
type SessionValidator interface {
	ValidateSession(token string) (*users.Session, error)
}

// Auth creates authentication middleware
func Auth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := validator.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken extracts the session token from the Authorization header
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *users.Session {
	session, _ := ctx.Value(sessionContextKey).(*users.Session)
	return session
}

// MustGetUsername returns the authenticated username or panics
func MustGetUsername(ctx context.Context) model.Username {
	session := GetSession(ctx)
	if session == nil {
		panic("no session in context - auth middleware not applied?")
	}
	return session.Username
}
