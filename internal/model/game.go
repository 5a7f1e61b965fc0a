package model

import "time"

// SessionID uniquely identifies a game session
type SessionID string

// Side is the colour a player controls in a session
type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// Player is a session participant. The side is fixed when the session is created.
type Player struct {
	User           Identity `json:"user"`
	Side           Side     `json:"side"`
	IsGameAccepted bool     `json:"is_game_accepted"`
}

// Piece is the piece a move was made with. The core never interprets it.
type Piece struct {
	ID              int    `json:"id"`
	Type            string `json:"type"`
	Color           Side   `json:"color"`
	HasMadeAnyMoves bool   `json:"has_made_any_moves"`
}

// Position is a board square
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Move is an already validated move plus its terminal flags
type Move struct {
	Piece         Piece    `json:"piece"`
	FinalPosition Position `json:"final_position"`
	PromoteTo     string   `json:"promote_to,omitempty"`
	IsCheckmate   bool     `json:"is_checkmate,omitempty"`
	IsStalemate   bool     `json:"is_stalemate,omitempty"`
}

// IsTerminal reports whether the move ends the game
func (m Move) IsTerminal() bool {
	return m.IsCheckmate || m.IsStalemate
}

// GameResult is the outcome of a finished session
type GameResult string

const (
	ResultWhiteWin GameResult = "white_win"
	ResultBlackWin GameResult = "black_win"
	ResultDraw     GameResult = "draw"
)

// WinFor returns the decisive result for the given side
func WinFor(side Side) GameResult {
	if side == SideWhite {
		return ResultWhiteWin
	}
	return ResultBlackWin
}

// RatingChange holds the rating delta applied to each side
type RatingChange struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// AcceptanceStatus is present on a session until both players accept
type AcceptanceStatus struct {
	SecondsLeft int `json:"seconds_left"`
}

// SessionView is the externally visible projection of a session
type SessionView struct {
	ID               SessionID         `json:"id"`
	White            Player            `json:"white"`
	Black            Player            `json:"black"`
	MovesLog         []Move            `json:"moves_log"`
	IsStarted        bool              `json:"is_started"`
	AcceptanceStatus *AcceptanceStatus `json:"acceptance_status,omitempty"`
	Result           *GameResult       `json:"result,omitempty"`
	RatingChange     *RatingChange     `json:"rating_change,omitempty"`
}

// GameRecord is a finished session as handed to game history
type GameRecord struct {
	ID           SessionID    `json:"id"`
	Date         time.Time    `json:"date"`
	White        Username     `json:"white"`
	Black        Username     `json:"black"`
	MovesLog     []Move       `json:"moves_log"`
	Result       GameResult   `json:"result"`
	RatingChange RatingChange `json:"rating_change"`
}

// HasParticipant reports whether the user played in the game
func (g *GameRecord) HasParticipant(username Username) bool {
	return g.White == username || g.Black == username
}
