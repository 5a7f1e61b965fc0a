package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")

	// Game history errors
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game with this id already exists")

	// Session errors
	ErrNotParticipant    = errors.New("user is not a participant of this session")
	ErrSessionStarted    = errors.New("session has already started")
	ErrAlreadyAccepted   = errors.New("user has already accepted this session")
	ErrSessionNotStarted = errors.New("session has not started")
	ErrSessionFinished   = errors.New("session is already finished")
	ErrSessionDeclined   = errors.New("session was declined")
	ErrAmbiguousResult   = errors.New("move is flagged as both checkmate and stalemate")
	ErrNotTerminal       = errors.New("move does not end the game")
)
