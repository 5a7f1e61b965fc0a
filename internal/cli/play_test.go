package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessmatch/internal/model"
)

type inbound struct {
	Event model.EventType `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type PlaySuite struct {
	suite.Suite
	server   *httptest.Server
	received chan inbound
	script   func(conn *websocket.Conn)
}

func TestPlaySuite(t *testing.T) {
	suite.Run(t, new(PlaySuite))
}

func (s *PlaySuite) SetupTest() {
	s.received = make(chan inbound, 16)
	upgrader := websocket.Upgrader{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		s.script(conn)
	}))
}

func (s *PlaySuite) TearDownTest() {
	s.server.Close()
}

func (s *PlaySuite) wsURL() string {
	u, err := NewClient(s.server.URL, "", time.Second).WebSocketURL()
	s.Require().NoError(err)
	return u
}

// expect reads the next client event on the server side
func (s *PlaySuite) expect(conn *websocket.Conn) inbound {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var in inbound
	if s.NoError(conn.ReadJSON(&in)) {
		s.received <- in
	}
	return in
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (s *PlaySuite) TestJoinsSearchesAndAutoAccepts() {
	offer := model.GameUpdate{Game: &model.SessionView{
		ID:               "game-1",
		White:            model.Player{User: model.Identity{Username: "alice", Rating: 1200}, Side: model.SideWhite},
		Black:            model.Player{User: model.Identity{Username: "bob", Rating: 1250}, Side: model.SideBlack},
		AcceptanceStatus: &model.AcceptanceStatus{SecondsLeft: 20},
	}}

	s.script = func(conn *websocket.Conn) {
		s.expect(conn)
		s.expect(conn)
		_ = conn.WriteJSON(model.Message{Event: model.EventUpdateGame, Data: offer})
		s.expect(conn)
		closeNormally(conn)
	}

	var out bytes.Buffer
	err := play(context.Background(), s.wsURL(), "sess_token", playOptions{Search: true, AutoAccept: true, JSON: true}, nil, &out)
	s.Require().NoError(err)

	join := <-s.received
	s.Equal(model.EventJoin, join.Event)
	s.JSONEq(`{"token":"sess_token"}`, string(join.Data))
	s.Equal(model.EventStartSearching, (<-s.received).Event)
	accept := <-s.received
	s.Equal(model.EventAcceptGame, accept.Event)
	s.JSONEq(`{"game_id":"game-1"}`, string(accept.Data))

	var event StreamEvent
	s.Require().NoError(json.Unmarshal(bytes.TrimSpace(out.Bytes()), &event))
	s.Equal(string(model.EventUpdateGame), event.Event)
}

func (s *PlaySuite) TestCommandsFromInput() {
	started := model.GameUpdate{Game: &model.SessionView{ID: "game-7", IsStarted: true}}

	s.script = func(conn *websocket.Conn) {
		s.expect(conn)
		_ = conn.WriteJSON(model.Message{Event: model.EventUpdateGame, Data: started})
		s.expect(conn)
		closeNormally(conn)
	}

	// The move needs the game id from the update, so it is typed after a pause
	in := &delayedReader{
		wait: 200 * time.Millisecond,
		data: `move {"piece":{"id":3,"type":"knight","color":"white"},"final_position":{"row":2,"col":2}}` + "\n",
	}

	var out bytes.Buffer
	err := play(context.Background(), s.wsURL(), "sess_token", playOptions{}, in, &out)
	s.Require().NoError(err)

	s.Equal(model.EventJoin, (<-s.received).Event)
	move := <-s.received
	s.Equal(model.EventMakeMove, move.Event)
	var payload model.MovePayload
	s.Require().NoError(json.Unmarshal(move.Data, &payload))
	s.Equal(model.SessionID("game-7"), payload.GameID)
	s.Equal("knight", payload.Move.Piece.Type)

	s.Contains(out.String(), "game game-7 started")
}

func (s *PlaySuite) TestCancelledContextDisconnects() {
	s.script = func(conn *websocket.Conn) {
		s.expect(conn)
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, _ = conn.ReadMessage()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-s.received
		cancel()
	}()

	var out bytes.Buffer
	err := play(ctx, s.wsURL(), "sess_token", playOptions{}, nil, &out)
	s.NoError(err)
	s.Contains(out.String(), "Disconnected")
}

func (s *PlaySuite) TestCommandValidation() {
	p := &playClient{accepted: make(map[model.SessionID]bool)}

	s.ErrorContains(p.command("accept"), "no current game")
	s.ErrorContains(p.command("move {not json"), "invalid move")
	s.ErrorContains(p.command("resign"), "unknown command")
}

func (s *PlaySuite) TestDescribeGame() {
	s.Equal("game: declined by opponent", describeGame(model.EventUpdateGame, model.GameUpdate{DeclinedByOpponent: true}))
	s.Equal("game: cancelled", describeGame(model.EventUpdateGame, model.GameUpdate{}))

	result := model.ResultDraw
	finished := model.GameUpdate{Game: &model.SessionView{ID: "g", IsStarted: true, Result: &result}}
	s.True(strings.HasPrefix(describeGame(model.EventMakeMove, finished), "game g finished: draw"))
}

// delayedReader yields its data once after a delay, then EOF
type delayedReader struct {
	wait time.Duration
	data string
	done bool
}

func (r *delayedReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	time.Sleep(r.wait)
	r.done = true
	return copy(p, r.data), nil
}
