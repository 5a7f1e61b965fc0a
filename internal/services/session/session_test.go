package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessmatch/internal/dependencies/mocks"
	"github.com/mcoot/chessmatch/internal/model"
)

type SessionSuite struct {
	suite.Suite
	scheduler *mocks.MockScheduler
	random    *mocks.MockRandom
	timedOut  []*Session
	alice     model.Identity
	bob       model.Identity
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.scheduler = mocks.NewMockScheduler()
	s.random = mocks.NewMockRandom()
	s.timedOut = nil
	s.alice = model.Identity{Username: "alice", Rating: 1200}
	s.bob = model.Identity{Username: "bob", Rating: 1250}
}

// newSession creates a session with alice as white
func (s *SessionSuite) newSession() *Session {
	s.random.QueueIntn(0)
	return New(Params{
		ID:        "game-1",
		First:     s.alice,
		Second:    s.bob,
		Config:    Config{AcceptSeconds: 3},
		Random:    s.random,
		Scheduler: s.scheduler,
		OnTimeout: func(sess *Session) {
			s.timedOut = append(s.timedOut, sess)
		},
	})
}

func (s *SessionSuite) startedSession() *Session {
	sess := s.newSession()
	_, err := sess.Accept("alice")
	s.Require().NoError(err)
	started, err := sess.Accept("bob")
	s.Require().NoError(err)
	s.Require().True(started)
	return sess
}

func (s *SessionSuite) TestCoinFlipAssignsSides() {
	s.random.QueueIntn(1)
	sess := New(Params{
		ID: "game-2", First: s.alice, Second: s.bob,
		Random: s.random, Scheduler: s.scheduler,
	})

	s.Equal(s.bob, sess.White().User)
	s.Equal(s.alice, sess.Black().User)
	s.Equal(model.SideWhite, sess.White().Side)
	s.Equal(model.SideBlack, sess.Black().Side)
	s.Equal(DefaultConfig().AcceptSeconds, sess.SecondsLeft())
}

func (s *SessionSuite) TestNewSessionIsPending() {
	sess := s.newSession()

	s.Equal(StatePending, sess.State())
	view := sess.View()
	s.False(view.IsStarted)
	s.Require().NotNil(view.AcceptanceStatus)
	s.Equal(3, view.AcceptanceStatus.SecondsLeft)
	s.Nil(view.Result)
	s.Empty(view.MovesLog)
	s.Equal(1, s.scheduler.Active())
}

func (s *SessionSuite) TestStartsOnlyWhenBothAccept() {
	sess := s.newSession()

	started, err := sess.Accept("alice")
	s.Require().NoError(err)
	s.False(started)
	s.Equal(StatePending, sess.State())

	started, err = sess.Accept("bob")
	s.Require().NoError(err)
	s.True(started)
	s.Equal(StateStarted, sess.State())
	s.Nil(sess.View().AcceptanceStatus)
	s.Equal(0, s.scheduler.Active())
}

func (s *SessionSuite) TestAcceptOrderDoesNotMatter() {
	a := s.newSession()
	_, _ = a.Accept("alice")
	startedA, _ := a.Accept("bob")

	b := s.newSession()
	_, _ = b.Accept("bob")
	startedB, _ := b.Accept("alice")

	s.True(startedA)
	s.True(startedB)
	s.Equal(a.State(), b.State())
}

func (s *SessionSuite) TestAcceptTwiceIsRejected() {
	sess := s.newSession()
	_, _ = sess.Accept("alice")
	started, err := sess.Accept("alice")

	s.ErrorIs(err, model.ErrAlreadyAccepted)
	s.False(started)
	s.Equal(StatePending, sess.State())
}

func (s *SessionSuite) TestAcceptByStranger() {
	sess := s.newSession()
	_, err := sess.Accept("carol")
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *SessionSuite) TestAcceptAfterStart() {
	sess := s.startedSession()
	_, err := sess.Accept("alice")
	s.ErrorIs(err, model.ErrSessionStarted)
}

func (s *SessionSuite) TestCountdownTimesOut() {
	sess := s.newSession()
	_, _ = sess.Accept("alice")

	s.scheduler.TickN(2)
	s.Equal(StatePending, sess.State())
	s.Equal(1, sess.SecondsLeft())

	s.scheduler.Tick()
	s.Equal(StateDeclined, sess.State())
	s.Require().Len(s.timedOut, 1)
	s.Same(sess, s.timedOut[0])
	s.Equal(0, s.scheduler.Active())

	s.scheduler.TickN(5)
	s.Len(s.timedOut, 1)
}

func (s *SessionSuite) TestCountdownNeverStartsSession() {
	sess := s.newSession()
	s.scheduler.TickN(3)

	_, err := sess.Accept("alice")
	s.ErrorIs(err, model.ErrSessionDeclined)
	s.Equal(StateDeclined, sess.State())
}

func (s *SessionSuite) TestDeclineCancelsCountdown() {
	sess := s.newSession()

	s.Require().NoError(sess.Decline("bob"))
	s.Equal(StateDeclined, sess.State())
	s.Equal(0, s.scheduler.Active())

	s.scheduler.TickN(5)
	s.Empty(s.timedOut)
}

func (s *SessionSuite) TestDeclineAfterStart() {
	sess := s.startedSession()
	s.ErrorIs(sess.Decline("alice"), model.ErrSessionStarted)
}

func (s *SessionSuite) TestMoveBeforeStart() {
	sess := s.newSession()
	s.ErrorIs(sess.AddMove("alice", model.Move{}), model.ErrSessionNotStarted)
}

func (s *SessionSuite) TestMovesAreAppendedInOrder() {
	sess := s.startedSession()
	first := model.Move{Piece: model.Piece{ID: 1, Type: "pawn", Color: model.SideWhite}, FinalPosition: model.Position{Row: 4, Col: 4}}
	second := model.Move{Piece: model.Piece{ID: 17, Type: "pawn", Color: model.SideBlack}, FinalPosition: model.Position{Row: 3, Col: 4}}

	s.Require().NoError(sess.AddMove("alice", first))
	s.Require().NoError(sess.AddMove("bob", second))

	s.Equal([]model.Move{first, second}, sess.View().MovesLog)
}

func (s *SessionSuite) TestViewDoesNotAliasMoveLog() {
	sess := s.startedSession()
	s.Require().NoError(sess.AddMove("alice", model.Move{}))

	view := sess.View()
	view.MovesLog[0].Piece.Type = "queen"

	s.Empty(sess.View().MovesLog[0].Piece.Type)
}

func (s *SessionSuite) TestFinishedSessionRejectsMoves() {
	sess := s.startedSession()
	s.Require().NoError(sess.Finish(model.ResultWhiteWin))

	s.ErrorIs(sess.AddMove("bob", model.Move{}), model.ErrSessionFinished)
	s.ErrorIs(sess.Finish(model.ResultDraw), model.ErrSessionFinished)

	result, change, ok := sess.Result()
	s.True(ok)
	s.Equal(model.ResultWhiteWin, result)
	s.Equal(model.RatingChange{White: 25, Black: -25}, change)
}

func (s *SessionSuite) TestFinishBeforeStart() {
	sess := s.newSession()
	s.ErrorIs(sess.Finish(model.ResultDraw), model.ErrSessionNotStarted)
}

func (s *SessionSuite) TestRecord() {
	sess := s.startedSession()
	move := model.Move{IsCheckmate: true}
	s.Require().NoError(sess.AddMove("alice", move))
	s.Require().NoError(sess.Finish(model.ResultWhiteWin))

	date := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	record, err := sess.Record(date)
	s.Require().NoError(err)

	s.Equal(model.SessionID("game-1"), record.ID)
	s.Equal(date, record.Date)
	s.Equal(model.Username("alice"), record.White)
	s.Equal(model.Username("bob"), record.Black)
	s.Equal([]model.Move{move}, record.MovesLog)
	s.Equal(model.ResultWhiteWin, record.Result)
	s.Equal(model.RatingChange{White: 25, Black: -25}, record.RatingChange)
}

func (s *SessionSuite) TestRecordRequiresFinish() {
	sess := s.startedSession()
	_, err := sess.Record(time.Now())
	s.Error(err)
}

func (s *SessionSuite) TestOpponent() {
	sess := s.newSession()

	opp, ok := sess.Opponent("alice")
	s.Require().True(ok)
	s.Equal(s.bob, opp.User)

	opp, ok = sess.Opponent("bob")
	s.Require().True(ok)
	s.Equal(s.alice, opp.User)

	_, ok = sess.Opponent("carol")
	s.False(ok)
}

func (s *SessionSuite) TestRatingChangeIsZeroSum() {
	for _, result := range []model.GameResult{model.ResultWhiteWin, model.ResultBlackWin, model.ResultDraw} {
		change := RatingChangeFor(result)
		s.Equal(0, change.White+change.Black, string(result))
	}
	s.Equal(model.RatingChange{}, RatingChangeFor(model.ResultDraw))
	s.Equal(model.RatingChange{White: -25, Black: 25}, RatingChangeFor(model.ResultBlackWin))
}

func (s *SessionSuite) TestResolveResult() {
	result, err := ResolveResult(model.SideBlack, model.Move{IsCheckmate: true})
	s.Require().NoError(err)
	s.Equal(model.ResultBlackWin, result)

	result, err = ResolveResult(model.SideWhite, model.Move{IsStalemate: true})
	s.Require().NoError(err)
	s.Equal(model.ResultDraw, result)

	_, err = ResolveResult(model.SideWhite, model.Move{IsCheckmate: true, IsStalemate: true})
	s.ErrorIs(err, model.ErrAmbiguousResult)

	_, err = ResolveResult(model.SideWhite, model.Move{})
	s.ErrorIs(err, model.ErrNotTerminal)
}
