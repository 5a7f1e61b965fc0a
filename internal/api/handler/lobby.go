package handler

import (
	"net/http"

	"github.com/mcoot/chessmatch/internal/api/response"
	"github.com/mcoot/chessmatch/internal/model"
)

// LobbySource provides lobby snapshots
type LobbySource interface {
	Lobby() model.LobbyState
}

// LobbyHandler handles the lobby endpoint
type LobbyHandler struct {
	lobby LobbySource
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(lobby LobbySource) *LobbyHandler {
	return &LobbyHandler{lobby: lobby}
}

// Get handles GET /api/v1/lobby
func (h *LobbyHandler) Get(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, h.lobby.Lobby())
}
