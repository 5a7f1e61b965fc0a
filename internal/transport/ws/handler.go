package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/gateway"
	"github.com/mcoot/chessmatch/internal/services/registry"
)

// Gateway receives connection lifecycle and inbound events
type Gateway interface {
	Connect(ctx context.Context, conn registry.Conn)
	Join(ctx context.Context, conn registry.Conn, identity model.Identity)
	Disconnect(ctx context.Context, connID registry.ConnID)
	Handle(ctx context.Context, connID registry.ConnID, in model.Inbound)
}

// Authenticator resolves the token carried by a join event
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Identity, error)
}

var errMissingToken = errors.New("token is required")

// Handler upgrades HTTP requests to WebSocket connections and feeds their events to the gateway
type Handler struct {
	gateway  Gateway
	auth     Authenticator
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler
func NewHandler(gw Gateway, auth Authenticator, logger *slog.Logger) *Handler {
	return &Handler{
		gateway: gw,
		auth:    auth,
		logger:  logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP serves one connection until the peer goes away
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	conn := newConnection(socket, h.logger)
	ctx := r.Context()

	h.gateway.Connect(ctx, conn)
	go conn.writePump()

	h.readPump(ctx, conn)

	conn.Close()
	h.gateway.Disconnect(context.WithoutCancel(ctx), conn.ID())
}

func (h *Handler) readPump(ctx context.Context, conn *Connection) {
	socket := conn.conn
	socket.SetReadLimit(maxMessageSize)
	_ = socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				conn.logger.Debug("connection closed unexpectedly", slog.Any("error", err))
			}
			return
		}

		var in model.Inbound
		if err := gateway.Decode(data, &in); err != nil {
			conn.logger.Debug("ignoring malformed message", slog.Any("error", err))
			continue
		}

		if in.Event == model.EventJoin {
			h.join(ctx, conn, in)
			continue
		}
		h.gateway.Handle(ctx, conn.ID(), in)
	}
}

func (h *Handler) join(ctx context.Context, conn *Connection, in model.Inbound) {
	var p model.JoinPayload
	err := gateway.Decode(in.Data, &p)
	if err == nil && p.Token == "" {
		err = errMissingToken
	}
	if err != nil {
		conn.logger.Debug("ignoring malformed join", slog.Any("error", err))
		return
	}

	identity, err := h.auth.Authenticate(ctx, p.Token)
	if err != nil {
		conn.logger.Info("join rejected", slog.Any("error", err))
		return
	}
	h.gateway.Join(ctx, conn, identity)
}
