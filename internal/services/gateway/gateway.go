package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/chessmatch/internal/dependencies/clock"
	"github.com/mcoot/chessmatch/internal/dependencies/random"
	"github.com/mcoot/chessmatch/internal/dependencies/ticker"
	"github.com/mcoot/chessmatch/internal/events"
	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/matchmaking"
	"github.com/mcoot/chessmatch/internal/services/penalty"
	"github.com/mcoot/chessmatch/internal/services/registry"
	"github.com/mcoot/chessmatch/internal/services/session"
)

// RatingStore applies rating changes to persisted profiles
type RatingStore interface {
	UpdateRating(ctx context.Context, username model.Username, delta int) (*model.User, error)
}

// HistoryStore persists finished games
type HistoryStore interface {
	SaveGame(ctx context.Context, record *model.GameRecord) error
}

// Config holds the settings of every component the gateway owns
type Config struct {
	Matchmaking matchmaking.Config
	Session     session.Config
	Penalty     penalty.Config
}

// DefaultConfig returns the default gateway configuration
func DefaultConfig() Config {
	return Config{
		Matchmaking: matchmaking.DefaultConfig(),
		Session:     session.DefaultConfig(),
		Penalty:     penalty.DefaultConfig(),
	}
}

// Deps are the collaborators of the gateway
type Deps struct {
	Ratings   RatingStore
	History   HistoryStore
	Publisher events.Publisher
	Clock     clock.Clock
	Random    random.Random
	Scheduler ticker.Scheduler
	Logger    *slog.Logger
}

// Gateway routes connection events to the registry, matchmaking queue,
// sessions and penalty tracker. All of them are guarded by mu, including
// timer callbacks.
type Gateway struct {
	mu sync.Mutex

	cfg       Config
	ratings   RatingStore
	history   HistoryStore
	publisher events.Publisher
	clock     clock.Clock
	random    random.Random
	scheduler ticker.Scheduler
	logger    *slog.Logger

	registry  *registry.Registry
	queue     *matchmaking.Queue
	penalties *penalty.Tracker
	sessions  map[model.SessionID]*session.Session
	byUser    map[model.Username]model.SessionID
}

// New creates a Gateway
func New(cfg Config, deps Deps) *Gateway {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}

	g := &Gateway{
		cfg:       cfg,
		ratings:   deps.Ratings,
		history:   deps.History,
		publisher: publisher,
		clock:     deps.Clock,
		random:    deps.Random,
		logger:    deps.Logger.With(slog.String("component", "gateway")),
		registry:  registry.New(),
		sessions:  make(map[model.SessionID]*session.Session),
		byUser:    make(map[model.Username]model.SessionID),
	}
	g.scheduler = ticker.Serialized(deps.Scheduler, &g.mu)
	g.penalties = penalty.New(cfg.Penalty, g.scheduler, g.onPenaltyExpired, deps.Logger)
	g.queue = matchmaking.New(cfg.Matchmaking, g.penalties)
	return g
}

// Lobby returns a snapshot of the lobby
func (g *Gateway) Lobby() model.LobbyState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lobbyState()
}

// ActiveSession returns the view of the user's current session, if any
func (g *Gateway) ActiveSession(username model.Username) (model.SessionView, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessionFor(username)
	if !ok {
		return model.SessionView{}, false
	}
	return sess.View(), true
}

// Shutdown stops every countdown and penalty timer
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sess := range g.sessions {
		sess.Stop()
	}
	g.penalties.Stop()
}

// Connect registers a connection that has not identified itself yet
func (g *Gateway) Connect(_ context.Context, conn registry.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registry.Add(conn)
	g.logger.Debug("connection opened", slog.String("conn_id", string(conn.ID())))
}

// Join attaches an identity to a connection and brings the client up to date
func (g *Gateway) Join(_ context.Context, conn registry.Conn, identity model.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.registry.Attach(conn, identity)
	g.logger.Info("user joined",
		slog.String("conn_id", string(conn.ID())),
		slog.String("username", string(identity.Username)),
	)

	lobby := g.lobbyState()
	g.broadcast(model.EventUpdateLobby, lobby, conn.ID())
	g.send(conn, model.EventUpdateLobby, lobby)

	if sess, ok := g.sessionFor(identity.Username); ok {
		view := sess.View()
		g.send(conn, model.EventUpdateGame, model.GameUpdate{Game: &view})
	}
}

// Disconnect forgets a connection and takes its user out of the search queue
func (g *Gateway) Disconnect(_ context.Context, connID registry.ConnID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	identity, ok := g.registry.Detach(connID)
	if !ok {
		return
	}
	g.logger.Debug("connection closed", slog.String("conn_id", string(connID)))
	if identity == nil {
		return
	}

	g.queue.Remove(identity.Username)
	g.logger.Info("user left", slog.String("username", string(identity.Username)))
	g.broadcast(model.EventUpdateLobby, g.lobbyState(), "")
}

// StartSearching puts the user in the search queue or matches them with a compatible opponent
func (g *Gateway) StartSearching(_ context.Context, connID registry.ConnID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, ok := g.identified(connID)
	if !ok {
		return
	}
	me := *client.Identity
	log := g.logger.With(slog.String("username", string(me.Username)))

	switch {
	case g.queue.Contains(me.Username):
		log.Debug("ignoring search: already searching")
		return
	case g.penalties.IsPenalized(me.Username):
		log.Debug("ignoring search: penalized")
		return
	case g.inSession(me.Username):
		log.Debug("ignoring search: already in a session")
		return
	}

	opponent, found := g.queue.FindCompatible(me)
	if !found {
		g.queue.Enqueue(me)
		log.Info("searching for opponent", slog.Int("rating", me.Rating))
		lobby := g.lobbyState()
		g.broadcast(model.EventUpdateLobby, lobby, connID)
		g.send(client.Conn, model.EventUpdateLobby, lobby)
		return
	}

	g.queue.Remove(opponent.Username)
	sess := g.createSession(opponent, me)
	log.Info("matched",
		slog.String("opponent", string(opponent.Username)),
		slog.String("game_id", string(sess.ID())),
	)

	view := sess.View()
	g.sendTo(opponent.Username, model.EventUpdateGame, model.GameUpdate{Game: &view})
	g.broadcast(model.EventUpdateLobby, g.lobbyState(), connID)
	g.send(client.Conn, model.EventUpdateGame, model.GameUpdate{Game: &view})
}

// CancelSearching takes the user out of the search queue
func (g *Gateway) CancelSearching(_ context.Context, connID registry.ConnID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, ok := g.identified(connID)
	if !ok {
		return
	}
	if !g.queue.Remove(client.Identity.Username) {
		return
	}
	g.logger.Info("stopped searching", slog.String("username", string(client.Identity.Username)))

	lobby := g.lobbyState()
	g.broadcast(model.EventUpdateLobby, lobby, connID)
	g.send(client.Conn, model.EventUpdateLobby, lobby)
}

// AcceptGame records the user's acceptance of a pending session
func (g *Gateway) AcceptGame(_ context.Context, connID registry.ConnID, id model.SessionID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, sess, ok := g.pendingSession(connID, id)
	if !ok {
		return
	}
	username := client.Identity.Username

	started, err := sess.Accept(username)
	if err != nil {
		g.logger.Debug("ignoring accept", slog.String("game_id", string(id)), slog.Any("error", err))
		return
	}

	// Only the first acceptance of a session counts towards decay
	if g.penalties.OnGameAccepted(username) {
		g.broadcast(model.EventUpdateLobby, g.lobbyState(), "")
	}

	view := sess.View()
	if started {
		g.logger.Info("game started", slog.String("game_id", string(id)))
		if opponent, ok := sess.Opponent(username); ok {
			g.sendTo(opponent.User.Username, model.EventUpdateGame, model.GameUpdate{Game: &view})
		}
	}
	g.send(client.Conn, model.EventUpdateGame, model.GameUpdate{Game: &view})
}

// DeclineGame ends a pending session and penalizes the user who declined it
func (g *Gateway) DeclineGame(_ context.Context, connID registry.ConnID, id model.SessionID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, sess, ok := g.pendingSession(connID, id)
	if !ok {
		return
	}
	username := client.Identity.Username
	player, _ := sess.PlayerFor(username)

	if err := sess.Decline(username); err != nil {
		g.logger.Debug("ignoring decline", slog.String("game_id", string(id)), slog.Any("error", err))
		return
	}
	g.removeSession(sess)
	g.penalties.RecordUnacceptedSession(player.User)
	g.logger.Info("game declined",
		slog.String("game_id", string(id)),
		slog.String("username", string(username)),
	)

	if opponent, ok := sess.Opponent(username); ok {
		g.sendTo(opponent.User.Username, model.EventUpdateGame, model.GameUpdate{DeclinedByOpponent: true})
	}
	g.broadcast(model.EventUpdateLobby, g.lobbyState(), "")
	g.send(client.Conn, model.EventUpdateGame, model.GameUpdate{})
}

// MakeMove appends a move to a started session and relays it to the opponent.
// A terminal move finishes the session; the record is then saved and ratings
// updated once the lock is released.
func (g *Gateway) MakeMove(ctx context.Context, connID registry.ConnID, id model.SessionID, move model.Move) {
	if record := g.makeMove(connID, id, move); record != nil {
		g.persist(ctx, record)
	}
}

func (g *Gateway) makeMove(connID registry.ConnID, id model.SessionID, move model.Move) *model.GameRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, ok := g.identified(connID)
	if !ok {
		return nil
	}
	username := client.Identity.Username
	log := g.logger.With(slog.String("game_id", string(id)), slog.String("username", string(username)))

	sess, ok := g.sessions[id]
	if !ok {
		log.Debug("ignoring move: unknown game")
		return nil
	}
	player, ok := sess.PlayerFor(username)
	if !ok {
		log.Debug("ignoring move: not a participant")
		return nil
	}
	if err := sess.AddMove(username, move); err != nil {
		log.Debug("ignoring move", slog.Any("error", err))
		return nil
	}

	var record *model.GameRecord
	if move.IsTerminal() {
		record = g.finish(sess, player.Side, move, log)
	}

	view := sess.View()
	if opponent, ok := sess.Opponent(username); ok {
		g.sendTo(opponent.User.Username, model.EventMakeMove, model.GameUpdate{Game: &view})
	}
	g.send(client.Conn, model.EventMakeMove, model.GameUpdate{Game: &view})
	return record
}

func (g *Gateway) finish(sess *session.Session, mover model.Side, move model.Move, log *slog.Logger) *model.GameRecord {
	result, err := session.ResolveResult(mover, move)
	if err != nil {
		log.Warn("terminal move has no result", slog.Any("error", err))
		return nil
	}
	if err := sess.Finish(result); err != nil {
		log.Warn("failed to finish game", slog.Any("error", err))
		return nil
	}
	g.removeSession(sess)

	record, err := sess.Record(g.clock.Now())
	if err != nil {
		log.Warn("failed to build game record", slog.Any("error", err))
		return nil
	}
	log.Info("game finished", slog.String("result", string(result)))
	return record
}

// persist saves the finished game, then updates both ratings, then publishes it.
// Failures are logged; the in-memory state is already final.
func (g *Gateway) persist(ctx context.Context, record *model.GameRecord) {
	log := g.logger.With(slog.String("game_id", string(record.ID)))

	if err := g.history.SaveGame(ctx, record); err != nil {
		log.Error("failed to save game", slog.Any("error", err))
	}

	updates := []struct {
		username model.Username
		delta    int
	}{
		{record.White, record.RatingChange.White},
		{record.Black, record.RatingChange.Black},
	}
	for _, u := range updates {
		if _, err := g.ratings.UpdateRating(ctx, u.username, u.delta); err != nil {
			log.Error("failed to update rating",
				slog.String("username", string(u.username)),
				slog.Int("delta", u.delta),
				slog.Any("error", err),
			)
		}
	}

	if err := g.publisher.PublishGameFinished(ctx, record); err != nil {
		log.Error("failed to publish finished game", slog.Any("error", err))
	}
}

// onSessionTimeout runs under mu from the session countdown
func (g *Gateway) onSessionTimeout(sess *session.Session) {
	g.removeSession(sess)
	g.logger.Info("game acceptance timed out", slog.String("game_id", string(sess.ID())))

	for _, p := range sess.Players() {
		if p.IsGameAccepted {
			g.sendTo(p.User.Username, model.EventUpdateGame, model.GameUpdate{DeclinedByOpponent: true})
			continue
		}
		g.penalties.RecordUnacceptedSession(p.User)
		g.sendTo(p.User.Username, model.EventUpdateGame, model.GameUpdate{})
	}
	g.broadcast(model.EventUpdateLobby, g.lobbyState(), "")
}

// onPenaltyExpired runs under mu from the penalty timer
func (g *Gateway) onPenaltyExpired(user model.Identity) {
	g.logger.Info("penalty expired", slog.String("username", string(user.Username)))
	g.broadcast(model.EventUpdateLobby, g.lobbyState(), "")
}

func (g *Gateway) createSession(first, second model.Identity) *session.Session {
	sess := session.New(session.Params{
		ID:        model.SessionID(uuid.NewString()),
		First:     first,
		Second:    second,
		Config:    g.cfg.Session,
		Random:    g.random,
		Scheduler: g.scheduler,
		OnTimeout: g.onSessionTimeout,
	})
	g.sessions[sess.ID()] = sess
	g.byUser[first.Username] = sess.ID()
	g.byUser[second.Username] = sess.ID()
	return sess
}

func (g *Gateway) removeSession(sess *session.Session) {
	sess.Stop()
	delete(g.sessions, sess.ID())
	for _, p := range sess.Players() {
		if g.byUser[p.User.Username] == sess.ID() {
			delete(g.byUser, p.User.Username)
		}
	}
}

func (g *Gateway) sessionFor(username model.Username) (*session.Session, bool) {
	id, ok := g.byUser[username]
	if !ok {
		return nil, false
	}
	sess, ok := g.sessions[id]
	return sess, ok
}

func (g *Gateway) inSession(username model.Username) bool {
	_, ok := g.sessionFor(username)
	return ok
}

// identified returns the client for a connection that has joined
func (g *Gateway) identified(connID registry.ConnID) (*registry.Client, bool) {
	client, ok := g.registry.Find(connID)
	if !ok || client.Identity == nil {
		g.logger.Debug("ignoring event from unidentified connection", slog.String("conn_id", string(connID)))
		return nil, false
	}
	return client, true
}

// pendingSession resolves the sender and a session they take part in that is awaiting acceptance
func (g *Gateway) pendingSession(connID registry.ConnID, id model.SessionID) (*registry.Client, *session.Session, bool) {
	client, ok := g.identified(connID)
	if !ok {
		return nil, nil, false
	}
	log := g.logger.With(slog.String("game_id", string(id)), slog.String("username", string(client.Identity.Username)))

	sess, ok := g.sessions[id]
	if !ok {
		log.Debug("ignoring event: unknown game")
		return nil, nil, false
	}
	if _, ok := sess.PlayerFor(client.Identity.Username); !ok {
		log.Debug("ignoring event: not a participant")
		return nil, nil, false
	}
	if sess.State() != session.StatePending {
		log.Debug("ignoring event: game already started")
		return nil, nil, false
	}
	return client, sess, true
}

func (g *Gateway) lobbyState() model.LobbyState {
	return model.LobbyState{
		OnlineUsers: g.registry.Identities(),
		SearchQueue: g.queue.List(),
		Penalties:   g.penalties.List(),
	}
}
