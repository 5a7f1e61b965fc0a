package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/chessmatch/internal/model"
)

// SubjectGameFinished is the subject finished games are published on
const SubjectGameFinished = "chessmatch.games.finished"

// Publisher announces finished games to other systems
type Publisher interface {
	PublishGameFinished(ctx context.Context, record *model.GameRecord) error
	Close()
}

// Nop is a Publisher that does nothing
type Nop struct{}

// PublishGameFinished does nothing
func (Nop) PublishGameFinished(context.Context, *model.GameRecord) error {
	return nil
}

// Close does nothing
func (Nop) Close() {}

// Conn is the subset of *nats.Conn used for publishing
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSPublisher publishes finished games as JSON on a NATS subject
type NATSPublisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
}

// Connect dials the NATS server at url
func Connect(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("chessmatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNATSPublisher(conn, logger), nil
}

// NewNATSPublisher creates a publisher on an existing connection
func NewNATSPublisher(conn Conn, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:    conn,
		subject: SubjectGameFinished,
		logger:  logger.With(slog.String("component", "events")),
	}
}

// PublishGameFinished publishes the record
func (p *NATSPublisher) PublishGameFinished(ctx context.Context, record *model.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal game record: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish game %s: %w", record.ID, err)
	}
	p.logger.Debug("published finished game",
		slog.String("game_id", string(record.ID)),
		slog.String("subject", p.subject),
	)
	return nil
}

// Close closes the underlying connection
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
