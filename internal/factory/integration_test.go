package factory

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessmatch/internal/config"
	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/gateway"
	"github.com/mcoot/chessmatch/internal/services/registry"
	"github.com/mcoot/chessmatch/internal/storage/memory"
	sqlitestorage "github.com/mcoot/chessmatch/internal/storage/sqlite"
)

// clientConn stands in for a WebSocket connection
type clientConn struct {
	mu       sync.Mutex
	id       registry.ConnID
	messages []model.Message
}

func (c *clientConn) ID() registry.ConnID {
	return c.id
}

func (c *clientConn) Send(msg model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

func (c *clientConn) lastGame() model.GameUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if update, ok := c.messages[i].Data.(model.GameUpdate); ok {
			return update
		}
	}
	return model.GameUpdate{}
}

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	cfg := gateway.DefaultConfig()
	cfg.Session.AcceptSeconds = 2
	cfg.Penalty.SecondsPerDecline = 30
	s.app = NewTestApp(cfg)
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

// signIn registers a user and joins the lobby over a fresh connection
func (s *IntegrationSuite) signIn(username string, rating int) *clientConn {
	session, _, err := s.app.Users.Register(s.ctx, username, "password123", rating)
	s.Require().NoError(err)

	identity, err := s.app.Users.Authenticate(s.ctx, session.Token)
	s.Require().NoError(err)

	conn := &clientConn{id: registry.ConnID("conn-" + username)}
	s.app.Gateway.Connect(s.ctx, conn)
	s.app.Gateway.Join(s.ctx, conn, identity)
	return conn
}

func (s *IntegrationSuite) matchPlayers(white, black *clientConn) model.SessionID {
	s.app.Gateway.StartSearching(s.ctx, white.ID())
	s.app.Gateway.StartSearching(s.ctx, black.ID())
	game := black.lastGame().Game
	s.Require().NotNil(game)
	return game.ID
}

// Test: Complete flow from registration to a persisted finished game
func (s *IntegrationSuite) TestCompleteGameFlow() {
	alice := s.signIn("alice", 1200)
	bob := s.signIn("bob", 1300)

	id := s.matchPlayers(alice, bob)
	s.app.Gateway.AcceptGame(s.ctx, alice.ID(), id)
	s.app.Gateway.AcceptGame(s.ctx, bob.ID(), id)
	s.True(alice.lastGame().Game.IsStarted)

	s.app.Gateway.MakeMove(s.ctx, alice.ID(), id, model.Move{
		Piece:         model.Piece{ID: 12, Type: "pawn", Color: model.SideWhite},
		FinalPosition: model.Position{Row: 4, Col: 4},
	})
	s.app.Gateway.MakeMove(s.ctx, bob.ID(), id, model.Move{
		Piece:         model.Piece{ID: 28, Type: "queen", Color: model.SideBlack},
		FinalPosition: model.Position{Row: 7, Col: 3},
		IsCheckmate:   true,
	})

	// Ratings are persisted
	aliceUser, err := s.app.Users.GetUser(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1175, aliceUser.Rating)
	s.Equal(1200, aliceUser.InitialRating)
	bobUser, err := s.app.Users.GetUser(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(1325, bobUser.Rating)

	// History is visible to both participants
	games, err := s.app.Users.GamesForUser(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(games, 1)
	s.Equal(id, games[0].ID)
	s.Equal(model.ResultBlackWin, games[0].Result)
	s.Len(games[0].MovesLog, 2)
	s.True(games[0].Date.Equal(s.app.MockClock.Now()))

	record, err := s.app.Users.Game(s.ctx, "bob", id)
	s.Require().NoError(err)
	s.Equal(model.Username("alice"), record.White)

	// The next match uses the updated ratings
	s.app.Gateway.Disconnect(s.ctx, alice.ID())
	s.signInAgain("alice")
	lobby := s.app.Gateway.Lobby()
	s.Contains(lobby.OnlineUsers, model.Identity{Username: "alice", Rating: 1175})

	_, active := s.app.Gateway.ActiveSession("alice")
	s.False(active)
}

func (s *IntegrationSuite) signInAgain(username string) *clientConn {
	session, _, err := s.app.Users.Login(s.ctx, username, "password123")
	s.Require().NoError(err)
	identity, err := s.app.Users.Authenticate(s.ctx, session.Token)
	s.Require().NoError(err)

	conn := &clientConn{id: registry.ConnID("conn2-" + username)}
	s.app.Gateway.Connect(s.ctx, conn)
	s.app.Gateway.Join(s.ctx, conn, identity)
	return conn
}

// Test: An unanswered offer times out and penalizes the player who did not accept
func (s *IntegrationSuite) TestAcceptanceTimeout() {
	alice := s.signIn("alice", 1200)
	bob := s.signIn("bob", 1200)

	id := s.matchPlayers(alice, bob)
	s.app.Gateway.AcceptGame(s.ctx, alice.ID(), id)
	s.app.MockScheduler.TickN(2)

	s.True(alice.lastGame().DeclinedByOpponent)
	s.Nil(bob.lastGame().Game)

	lobby := s.app.Gateway.Lobby()
	s.Require().Len(lobby.Penalties, 1)
	s.Equal(model.Username("bob"), lobby.Penalties[0].User.Username)

	_, active := s.app.Gateway.ActiveSession("alice")
	s.False(active)

	games, err := s.app.Users.GamesForUser(s.ctx, "alice")
	s.Require().NoError(err)
	s.Empty(games)
}

// Test: Expired login sessions are dropped by the periodic cleanup
func (s *IntegrationSuite) TestExpiredSessionsAreCleaned() {
	session, _, err := s.app.Users.Register(s.ctx, "carol", "password123", 0)
	s.Require().NoError(err)

	s.app.MockClock.Advance(25 * time.Hour)
	s.app.MockScheduler.Tick()

	s.app.MockClock.Set(session.CreatedAt)
	_, err = s.app.Users.ValidateSession(session.Token)
	s.Error(err)
}

func TestFromConfigSuite(t *testing.T) {
	suite.Run(t, new(FromConfigSuite))
}

type FromConfigSuite struct {
	suite.Suite
}

func (s *FromConfigSuite) TestMapsMatchmakingSettings() {
	c := config.Default()
	c.Matchmaking.MaxRatingDifference = 150
	c.Matchmaking.AcceptSeconds = 15
	c.Matchmaking.PenaltySecondsPerDecline = 45

	cfg := FromConfig(c, nil)
	s.Require().NotNil(cfg.GatewayConfig)
	s.Equal(150, cfg.GatewayConfig.Matchmaking.MaxRatingDifference)
	s.Equal(15, cfg.GatewayConfig.Session.AcceptSeconds)
	s.Equal(45, cfg.GatewayConfig.Penalty.SecondsPerDecline)
	s.Equal(StorageTypeMemory, cfg.StorageType)
}

func (s *FromConfigSuite) TestMapsBackendSettings() {
	c := config.Default()
	c.Storage.Type = config.StoragePostgres
	c.Storage.DatabaseURL = "postgres://db/chessmatch"

	cfg := FromConfig(c, nil)
	s.Require().NotNil(cfg.PostgresConfig)
	s.Equal("postgres://db/chessmatch", cfg.PostgresConfig.URL)
	s.True(cfg.PostgresConfig.Migrate)
	s.Nil(cfg.RedisConfig)
}

func (s *FromConfigSuite) TestNewWithMemoryStorage() {
	app, err := New(context.Background(), Config{})
	s.Require().NoError(err)
	defer func() { s.NoError(app.Close()) }()

	s.IsType(&memory.Storage{}, app.Storage)
}

func (s *FromConfigSuite) TestNewWithSQLiteStorage() {
	c := config.Default()
	c.Storage.Type = config.StorageSQLite
	c.Storage.SQLitePath = filepath.Join(s.T().TempDir(), "chessmatch.db")

	app, err := New(context.Background(), FromConfig(c, nil))
	s.Require().NoError(err)
	defer func() { s.NoError(app.Close()) }()

	s.IsType(&sqlitestorage.Storage{}, app.Storage)
}

func (s *FromConfigSuite) TestNewWithRedisStorage() {
	mr := miniredis.RunT(s.T())

	c := config.Default()
	c.Storage.Type = config.StorageRedis
	c.Storage.RedisURL = "redis://" + mr.Addr()

	app, err := New(context.Background(), FromConfig(c, nil))
	s.Require().NoError(err)
	defer func() { s.NoError(app.Close()) }()

	_, _, err = app.Users.Register(context.Background(), "dave", "password123", 0)
	s.Require().NoError(err)
	s.True(mr.Exists("chessmatch:user:dave"))
}

func (s *FromConfigSuite) TestNewRejectsMissingBackendConfig() {
	_, err := New(context.Background(), Config{StorageType: StorageTypeRedis})
	s.Error(err)

	_, err = New(context.Background(), Config{StorageType: "mongo"})
	s.Error(err)
}
