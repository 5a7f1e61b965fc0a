package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/registry"
)

// ErrMissingGameID is returned when a game event carries no game id
var ErrMissingGameID = errors.New("game_id is required")

// ErrUnknownEvent is returned for events the gateway does not route
var ErrUnknownEvent = errors.New("unknown event")

// Handle decodes an inbound event from an open connection and dispatches it.
// Join is resolved by the transport, which calls Join directly.
// Malformed or unknown events are logged and ignored.
func (g *Gateway) Handle(ctx context.Context, connID registry.ConnID, in model.Inbound) {
	if err := g.dispatch(ctx, connID, in); err != nil {
		g.logger.Debug("ignoring inbound event",
			slog.String("conn_id", string(connID)),
			slog.String("event", string(in.Event)),
			slog.Any("error", err),
		)
	}
}

func (g *Gateway) dispatch(ctx context.Context, connID registry.ConnID, in model.Inbound) error {
	switch in.Event {
	case model.EventStartSearching:
		if err := Decode(in.Data, &struct{}{}); err != nil {
			return err
		}
		g.StartSearching(ctx, connID)

	case model.EventCancelSearching:
		if err := Decode(in.Data, &struct{}{}); err != nil {
			return err
		}
		g.CancelSearching(ctx, connID)

	case model.EventAcceptGame, model.EventDeclineGame:
		var p model.GamePayload
		if err := Decode(in.Data, &p); err != nil {
			return err
		}
		if p.GameID == "" {
			return ErrMissingGameID
		}
		if in.Event == model.EventAcceptGame {
			g.AcceptGame(ctx, connID, p.GameID)
		} else {
			g.DeclineGame(ctx, connID, p.GameID)
		}

	case model.EventMakeMove:
		var p model.MovePayload
		if err := Decode(in.Data, &p); err != nil {
			return err
		}
		if p.GameID == "" {
			return ErrMissingGameID
		}
		g.MakeMove(ctx, connID, p.GameID, p.Move)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, in.Event)
	}
	return nil
}

// Decode strictly decodes an event payload into v.
// Unknown fields and trailing data are rejected; a missing payload decodes as empty.
func Decode(data json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid payload: trailing data")
	}
	return nil
}
