package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessmatch/internal/api/apierr"
	"github.com/mcoot/chessmatch/internal/api/middleware"
	"github.com/mcoot/chessmatch/internal/api/response"
	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/users"
)

// ActiveSessions looks up the live session a user is part of
type ActiveSessions interface {
	ActiveSession(username model.Username) (model.SessionView, bool)
}

// GameHandler handles game history endpoints
type GameHandler struct {
	users    *users.Service
	sessions ActiveSessions
}

// NewGameHandler creates a new game handler
func NewGameHandler(usersService *users.Service, sessions ActiveSessions) *GameHandler {
	return &GameHandler{
		users:    usersService,
		sessions: sessions,
	}
}

// List handles GET /api/v1/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	username := middleware.MustGetUsername(r.Context())

	records, err := h.users.GamesForUser(r.Context(), username)
	if err != nil {
		WriteError(w, err)
		return
	}

	games := make([]response.GameSummary, len(records))
	for i, rec := range records {
		games[i] = response.GameSummaryFromModel(rec)
	}
	response.JSON(w, http.StatusOK, response.GameList{Games: games})
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := middleware.MustGetUsername(r.Context())
	id := model.SessionID(mux.Vars(r)["id"])

	record, err := h.users.Game(r.Context(), username, id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, record)
}

// Active handles GET /api/v1/games/active
func (h *GameHandler) Active(w http.ResponseWriter, r *http.Request) {
	view, ok := h.sessions.ActiveSession(middleware.MustGetUsername(r.Context()))
	if !ok {
		WriteError(w, apierr.NewNoActiveGameError())
		return
	}
	response.JSON(w, http.StatusOK, view)
}
