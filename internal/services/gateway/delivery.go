package gateway

import (
	"log/slog"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/registry"
)

// send delivers a message to one connection
func (g *Gateway) send(conn registry.Conn, event model.EventType, data any) {
	if err := conn.Send(model.Message{Event: event, Data: data}); err != nil {
		g.logger.Warn("failed to send message",
			slog.String("conn_id", string(conn.ID())),
			slog.String("event", string(event)),
			slog.Any("error", err),
		)
	}
}

// sendTo delivers a message to the connection currently identified as username
func (g *Gateway) sendTo(username model.Username, event model.EventType, data any) {
	client, ok := g.registry.FindByUsername(username)
	if !ok {
		g.logger.Debug("user not connected", slog.String("username", string(username)), slog.String("event", string(event)))
		return
	}
	g.send(client.Conn, event, data)
}

// broadcast delivers a message to every identified connection except one.
// An empty except delivers to all.
func (g *Gateway) broadcast(event model.EventType, data any, except registry.ConnID) {
	for _, client := range g.registry.Clients() {
		if client.Conn.ID() == except {
			continue
		}
		g.send(client.Conn, event, data)
	}
}
