package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessmatch/internal/api/middleware"
	"github.com/mcoot/chessmatch/internal/api/request"
	"github.com/mcoot/chessmatch/internal/api/response"
	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/users"
)

// UserHandler handles account and profile endpoints
type UserHandler struct {
	users *users.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(usersService *users.Service) *UserHandler {
	return &UserHandler{
		users: usersService,
	}
}

// Register handles POST /api/v1/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, user, err := h.users.Register(r.Context(), req.Username, req.Password, req.Rating)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.NewAuthResponse(session, user))
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, user, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.NewAuthResponse(session, user))
}

// Logout handles POST /api/v1/users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.users.InvalidateSession(middleware.GetSession(r.Context()).Token)
	response.NoContent(w)
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), middleware.MustGetUsername(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

// Get handles GET /api/v1/users/{username}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := model.Username(mux.Vars(r)["username"])

	user, err := h.users.GetUser(r.Context(), username)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.ListUsers(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]response.User, len(list))
	for i, u := range list {
		out[i] = response.UserFromModel(u)
	}
	response.JSON(w, http.StatusOK, response.UserList{Users: out})
}
