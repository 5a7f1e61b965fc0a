package model

import "encoding/json"

// EventType identifies a message exchanged with connected clients
type EventType string

const (
	// Inbound events
	EventJoin            EventType = "join"
	EventStartSearching  EventType = "start-searching"
	EventCancelSearching EventType = "cancel-searching"
	EventAcceptGame      EventType = "accept-game"
	EventDeclineGame     EventType = "decline-game"

	// Outbound events
	EventUpdateLobby EventType = "update-lobby"
	EventUpdateGame  EventType = "update-game"

	// Both directions
	EventMakeMove EventType = "make-move"
)

// Message is an outbound event sent to a connection
type Message struct {
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

// Inbound is an event received from a connection. Data is decoded per event type.
type Inbound struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload carries the session token used to identify the connection
type JoinPayload struct {
	Token string `json:"token"`
}

// GamePayload references a session
type GamePayload struct {
	GameID SessionID `json:"game_id"`
}

// MovePayload carries a move for a session
type MovePayload struct {
	GameID SessionID `json:"game_id"`
	Move   Move      `json:"move"`
}

// LobbyState is the full lobby snapshot sent with update-lobby
type LobbyState struct {
	OnlineUsers []Identity `json:"online_users"`
	SearchQueue []Identity `json:"search_queue"`
	Penalties   []Penalty  `json:"penalties"`
}

// GameUpdate is the payload of update-game and make-move.
// Game is nil when the session ended before it started.
type GameUpdate struct {
	Game               *SessionView `json:"game"`
	DeclinedByOpponent bool         `json:"declined_by_opponent,omitempty"`
}
