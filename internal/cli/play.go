package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/chessmatch/internal/model"
)

func newPlayCmd() *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join the lobby over WebSocket and play",
		Long: `Connect to the server's WebSocket endpoint, join the lobby and stream events.

Commands are read from stdin, one per line:
  search              start searching for an opponent
  cancel              stop searching
  accept [game-id]    accept the offered game
  decline [game-id]   decline the offered game
  move <json>         send a move, e.g. move {"piece":{"id":12},"final_position":{"row":4,"col":4}}
  quit                disconnect

The game id defaults to the game most recently received.
Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return errors.New("not logged in: run 'matchctl user login' first")
			}
			wsURL, err := client.WebSocketURL()
			if err != nil {
				return err
			}
			opts.Verbose = cfg.Verbose

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return play(ctx, wsURL, cfg.Token, opts, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().BoolVar(&opts.Search, "search", false, "Start searching as soon as the lobby is joined")
	cmd.Flags().BoolVar(&opts.AutoAccept, "auto-accept", false, "Accept every offered game")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output events as JSON lines")

	return cmd
}

type playOptions struct {
	Search     bool
	AutoAccept bool
	JSON       bool
	Verbose    bool
}

// StreamEvent is one event as printed with --json
type StreamEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type envelope struct {
	Event model.EventType `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// playClient holds one WebSocket session with the server
type playClient struct {
	conn *websocket.Conn
	opts playOptions
	out  io.Writer

	writeMu sync.Mutex

	mu       sync.Mutex
	current  model.SessionID
	accepted map[model.SessionID]bool
}

func play(ctx context.Context, wsURL, token string, opts playOptions, in io.Reader, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	p := &playClient{
		conn:     conn,
		opts:     opts,
		out:      out,
		accepted: make(map[model.SessionID]bool),
	}

	if err := p.send(model.EventJoin, model.JoinPayload{Token: token}); err != nil {
		_ = conn.Close()
		return err
	}
	if opts.Search {
		if err := p.send(model.EventStartSearching, struct{}{}); err != nil {
			_ = conn.Close()
			return err
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		p.close()
	}()
	if in != nil {
		go p.readCommands(in)
	}

	if !opts.JSON {
		_, _ = fmt.Fprintln(out, "Connected")
	}
	err = p.readEvents()
	if !opts.JSON {
		_, _ = fmt.Fprintln(out, "Disconnected")
	}
	return err
}

func (p *playClient) send(event model.EventType, data any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(map[string]any{"event": event, "data": data})
}

func (p *playClient) close() {
	p.writeMu.Lock()
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	p.writeMu.Unlock()
	_ = p.conn.Close()
}

func (p *playClient) readEvents() error {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		p.print(msg)

		if msg.Event == model.EventUpdateGame {
			p.onGameUpdate(msg.Data)
		}
	}
}

func (p *playClient) onGameUpdate(data json.RawMessage) {
	var update model.GameUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return
	}

	p.mu.Lock()
	if update.Game == nil {
		p.current = ""
		p.mu.Unlock()
		return
	}
	id := update.Game.ID
	p.current = id
	accept := p.opts.AutoAccept && !update.Game.IsStarted && !p.accepted[id]
	if accept {
		p.accepted[id] = true
	}
	p.mu.Unlock()

	if accept {
		_ = p.send(model.EventAcceptGame, model.GamePayload{GameID: id})
	}
}

func (p *playClient) readCommands(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			p.close()
			return
		}
		if err := p.command(line); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	}
}

func (p *playClient) command(line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "search":
		return p.send(model.EventStartSearching, struct{}{})
	case "cancel":
		return p.send(model.EventCancelSearching, struct{}{})
	case "accept", "decline":
		id, err := p.gameID(arg)
		if err != nil {
			return err
		}
		event := model.EventAcceptGame
		if name == "decline" {
			event = model.EventDeclineGame
		}
		return p.send(event, model.GamePayload{GameID: id})
	case "move":
		var move model.Move
		if err := json.Unmarshal([]byte(arg), &move); err != nil {
			return fmt.Errorf("invalid move: %w", err)
		}
		id, err := p.gameID("")
		if err != nil {
			return err
		}
		return p.send(model.EventMakeMove, model.MovePayload{GameID: id, Move: move})
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (p *playClient) gameID(arg string) (model.SessionID, error) {
	if arg != "" {
		return model.SessionID(arg), nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == "" {
		return "", errors.New("no current game")
	}
	return p.current, nil
}

func (p *playClient) print(msg envelope) {
	if p.opts.JSON {
		line, _ := json.Marshal(StreamEvent{Time: time.Now(), Event: string(msg.Event), Data: msg.Data})
		_, _ = fmt.Fprintln(p.out, string(line))
		return
	}

	timestamp := time.Now().Format("15:04:05")
	switch msg.Event {
	case model.EventUpdateLobby:
		var lobby model.LobbyState
		if err := json.Unmarshal(msg.Data, &lobby); err != nil {
			return
		}
		if p.opts.Verbose {
			_, _ = fmt.Fprintf(p.out, "[%s] lobby: online %s; searching %s\n",
				timestamp, identities(lobby.OnlineUsers), identities(lobby.SearchQueue))
			return
		}
		_, _ = fmt.Fprintf(p.out, "[%s] lobby: %d online, %d searching, %d penalized\n",
			timestamp, len(lobby.OnlineUsers), len(lobby.SearchQueue), len(lobby.Penalties))
	case model.EventUpdateGame, model.EventMakeMove:
		var update model.GameUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			return
		}
		_, _ = fmt.Fprintf(p.out, "[%s] %s\n", timestamp, describeGame(msg.Event, update))
	default:
		_, _ = fmt.Fprintf(p.out, "[%s] %s: %s\n", timestamp, msg.Event, string(msg.Data))
	}
}

func describeGame(event model.EventType, update model.GameUpdate) string {
	if update.Game == nil {
		if update.DeclinedByOpponent {
			return "game: declined by opponent"
		}
		return "game: cancelled"
	}

	g := update.Game
	vs := fmt.Sprintf("%s (white) vs %s (black)", g.White.User.Username, g.Black.User.Username)
	switch {
	case g.Result != nil:
		return fmt.Sprintf("game %s finished: %s, %s", g.ID, *g.Result, vs)
	case event == model.EventMakeMove && len(g.MovesLog) > 0:
		return fmt.Sprintf("game %s move %d: %s", g.ID, len(g.MovesLog), formatMove(g.MovesLog[len(g.MovesLog)-1]))
	case g.IsStarted:
		return fmt.Sprintf("game %s started: %s", g.ID, vs)
	case g.AcceptanceStatus != nil:
		return fmt.Sprintf("game %s offered: %s, %ds to accept", g.ID, vs, g.AcceptanceStatus.SecondsLeft)
	}
	return fmt.Sprintf("game %s: %s", g.ID, vs)
}
