package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessmatch/internal/api/handler"
	"github.com/mcoot/chessmatch/internal/api/middleware"
	"github.com/mcoot/chessmatch/internal/api/response"
	"github.com/mcoot/chessmatch/internal/services/gateway"
	"github.com/mcoot/chessmatch/internal/services/users"
	"github.com/mcoot/chessmatch/internal/transport/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Users   *users.Service
	Gateway *gateway.Gateway
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	userHandler := handler.NewUserHandler(cfg.Users)
	gameHandler := handler.NewGameHandler(cfg.Users, cfg.Gateway)
	lobbyHandler := handler.NewLobbyHandler(cfg.Gateway)
	wsHandler := ws.NewHandler(cfg.Gateway, cfg.Users, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.Users)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// WebSocket endpoint; the join event carries the session token
	r.Handle("/ws", loggingMiddleware(recoveryMiddleware(wsHandler))).Methods(http.MethodGet)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Account routes (no auth required)
	api.HandleFunc("/users/register", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/login", userHandler.Login).Methods(http.MethodPost)

	// Protected user routes
	usersRouter := api.PathPrefix("/users").Subrouter()
	usersRouter.Use(authMiddleware)
	usersRouter.HandleFunc("", userHandler.List).Methods(http.MethodGet)
	usersRouter.HandleFunc("/me", userHandler.GetMe).Methods(http.MethodGet)
	usersRouter.HandleFunc("/logout", userHandler.Logout).Methods(http.MethodPost)
	usersRouter.HandleFunc("/{username}", userHandler.Get).Methods(http.MethodGet)

	// Game routes (all require auth)
	games := api.PathPrefix("/games").Subrouter()
	games.Use(authMiddleware)
	games.HandleFunc("", gameHandler.List).Methods(http.MethodGet)
	games.HandleFunc("/active", gameHandler.Active).Methods(http.MethodGet)
	games.HandleFunc("/{id}", gameHandler.Get).Methods(http.MethodGet)

	// Lobby snapshot (requires auth)
	lobby := api.PathPrefix("/lobby").Subrouter()
	lobby.Use(authMiddleware)
	lobby.HandleFunc("", lobbyHandler.Get).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
