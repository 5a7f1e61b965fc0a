package session

import (
	"time"

	"github.com/mcoot/chessmatch/internal/dependencies/random"
	"github.com/mcoot/chessmatch/internal/dependencies/ticker"
	"github.com/mcoot/chessmatch/internal/model"
)

// RatingDelta is the rating won by the winner and lost by the loser of a decisive game
const RatingDelta = 25

// State is the lifecycle phase of a session
type State string

const (
	StatePending  State = "pending"  // Waiting for both players to accept
	StateStarted  State = "started"  // Both accepted, moves are being played
	StateFinished State = "finished" // Result recorded
	StateDeclined State = "declined" // Declined or timed out before starting
)

// Config holds session settings
type Config struct {
	// AcceptSeconds is how long both players have to accept a new session
	AcceptSeconds int
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		AcceptSeconds: 20,
	}
}

// Params are the inputs for creating a session
type Params struct {
	ID        model.SessionID
	First     model.Identity
	Second    model.Identity
	Config    Config
	Random    random.Random
	Scheduler ticker.Scheduler
	// OnTimeout is called when the acceptance countdown runs out
	OnTimeout func(*Session)
}

// Session is one match between two players.
// It is not safe for concurrent use; the owner serializes access, including the
// scheduler callbacks.
type Session struct {
	id    model.SessionID
	white model.Player
	black model.Player
	moves []model.Move
	state State

	secondsLeft int
	countdown   ticker.Task
	onTimeout   func(*Session)

	result       *model.GameResult
	ratingChange *model.RatingChange
}

// New creates a session and starts its acceptance countdown.
// Sides are assigned by a coin flip.
func New(p Params) *Session {
	cfg := p.Config
	if cfg.AcceptSeconds <= 0 {
		cfg.AcceptSeconds = DefaultConfig().AcceptSeconds
	}

	white, black := p.First, p.Second
	if p.Random.Intn(2) == 1 {
		white, black = black, white
	}

	s := &Session{
		id:          p.ID,
		white:       model.Player{User: white, Side: model.SideWhite},
		black:       model.Player{User: black, Side: model.SideBlack},
		moves:       []model.Move{},
		state:       StatePending,
		secondsLeft: cfg.AcceptSeconds,
		onTimeout:   p.OnTimeout,
	}
	s.countdown = p.Scheduler.Every(time.Second, s.tick)
	return s
}

// ID returns the session id
func (s *Session) ID() model.SessionID {
	return s.id
}

// State returns the current lifecycle phase
func (s *Session) State() State {
	return s.state
}

// SecondsLeft returns the remaining acceptance time
func (s *Session) SecondsLeft() int {
	return s.secondsLeft
}

// White returns the white player
func (s *Session) White() model.Player {
	return s.white
}

// Black returns the black player
func (s *Session) Black() model.Player {
	return s.black
}

// Players returns both players, white first
func (s *Session) Players() []model.Player {
	return []model.Player{s.white, s.black}
}

// PlayerFor returns the participant with the given username
func (s *Session) PlayerFor(username model.Username) (model.Player, bool) {
	p := s.player(username)
	if p == nil {
		return model.Player{}, false
	}
	return *p, true
}

// Opponent returns the other participant
func (s *Session) Opponent(username model.Username) (model.Player, bool) {
	p := s.player(username)
	if p == nil {
		return model.Player{}, false
	}
	if p.Side.Opposite() == model.SideBlack {
		return s.black, true
	}
	return s.white, true
}

// Accept marks the player's acceptance. Returns true when this acceptance started the session.
// A repeated acceptance by the same player fails with ErrAlreadyAccepted.
func (s *Session) Accept(username model.Username) (bool, error) {
	p := s.player(username)
	if p == nil {
		return false, model.ErrNotParticipant
	}
	if err := s.requirePending(); err != nil {
		return false, err
	}
	if p.IsGameAccepted {
		return false, model.ErrAlreadyAccepted
	}

	p.IsGameAccepted = true
	if !s.white.IsGameAccepted || !s.black.IsGameAccepted {
		return false, nil
	}

	s.stopCountdown()
	s.state = StateStarted
	return true, nil
}

// Decline ends a pending session
func (s *Session) Decline(username model.Username) error {
	if s.player(username) == nil {
		return model.ErrNotParticipant
	}
	if err := s.requirePending(); err != nil {
		return err
	}
	s.stopCountdown()
	s.state = StateDeclined
	return nil
}

// AddMove appends a move made by username to the log
func (s *Session) AddMove(username model.Username, move model.Move) error {
	if s.player(username) == nil {
		return model.ErrNotParticipant
	}
	switch s.state {
	case StatePending:
		return model.ErrSessionNotStarted
	case StateFinished:
		return model.ErrSessionFinished
	case StateDeclined:
		return model.ErrSessionDeclined
	}
	s.moves = append(s.moves, move)
	return nil
}

// Finish records the result and rating change. It can only happen once.
func (s *Session) Finish(result model.GameResult) error {
	switch s.state {
	case StatePending:
		return model.ErrSessionNotStarted
	case StateFinished:
		return model.ErrSessionFinished
	case StateDeclined:
		return model.ErrSessionDeclined
	}
	change := RatingChangeFor(result)
	s.result = &result
	s.ratingChange = &change
	s.state = StateFinished
	return nil
}

// Result returns the result once the session is finished
func (s *Session) Result() (model.GameResult, model.RatingChange, bool) {
	if s.result == nil {
		return "", model.RatingChange{}, false
	}
	return *s.result, *s.ratingChange, true
}

// Stop cancels the acceptance countdown without changing state
func (s *Session) Stop() {
	s.stopCountdown()
}

// View returns the externally visible projection of the session
func (s *Session) View() model.SessionView {
	view := model.SessionView{
		ID:        s.id,
		White:     s.white,
		Black:     s.black,
		MovesLog:  append([]model.Move(nil), s.moves...),
		IsStarted: s.state == StateStarted || s.state == StateFinished,
	}
	if view.MovesLog == nil {
		view.MovesLog = []model.Move{}
	}
	if s.state == StatePending {
		view.AcceptanceStatus = &model.AcceptanceStatus{SecondsLeft: s.secondsLeft}
	}
	if s.result != nil {
		result := *s.result
		change := *s.ratingChange
		view.Result = &result
		view.RatingChange = &change
	}
	return view
}

// Record returns the game history record of a finished session
func (s *Session) Record(date time.Time) (*model.GameRecord, error) {
	if s.state != StateFinished {
		return nil, model.ErrSessionNotStarted
	}
	return &model.GameRecord{
		ID:           s.id,
		Date:         date,
		White:        s.white.User.Username,
		Black:        s.black.User.Username,
		MovesLog:     append([]model.Move{}, s.moves...),
		Result:       *s.result,
		RatingChange: *s.ratingChange,
	}, nil
}

func (s *Session) tick() {
	if s.state != StatePending || s.countdown == nil {
		return
	}
	s.secondsLeft--
	if s.secondsLeft > 0 {
		return
	}
	s.stopCountdown()
	s.state = StateDeclined
	if s.onTimeout != nil {
		s.onTimeout(s)
	}
}

func (s *Session) requirePending() error {
	switch s.state {
	case StateStarted:
		return model.ErrSessionStarted
	case StateFinished:
		return model.ErrSessionFinished
	case StateDeclined:
		return model.ErrSessionDeclined
	}
	return nil
}

func (s *Session) stopCountdown() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

func (s *Session) player(username model.Username) *model.Player {
	switch username {
	case s.white.User.Username:
		return &s.white
	case s.black.User.Username:
		return &s.black
	}
	return nil
}

// RatingChangeFor returns the rating change a result produces
func RatingChangeFor(result model.GameResult) model.RatingChange {
	switch result {
	case model.ResultWhiteWin:
		return model.RatingChange{White: RatingDelta, Black: -RatingDelta}
	case model.ResultBlackWin:
		return model.RatingChange{White: -RatingDelta, Black: RatingDelta}
	}
	return model.RatingChange{}
}

// ResolveResult derives the result of a terminal move played by mover.
// Checkmate is a win for the mover and stalemate is a draw.
func ResolveResult(mover model.Side, move model.Move) (model.GameResult, error) {
	switch {
	case move.IsCheckmate && move.IsStalemate:
		return "", model.ErrAmbiguousResult
	case move.IsCheckmate:
		return model.WinFor(mover), nil
	case move.IsStalemate:
		return model.ResultDraw, nil
	}
	return "", model.ErrNotTerminal
}
