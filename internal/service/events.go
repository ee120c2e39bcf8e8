package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event subjects published for external consumers (notification fanout,
// audit pipelines). The engine itself never subscribes; clients poll.
const (
	SubjectMessageCreated    = "parley.message.created"
	SubjectRoomUpdated       = "parley.room.updated"
	SubjectModerationApplied = "parley.moderation.applied"
)

// EventPublisher emits best-effort domain events. Publish failures are
// logged and never fail the originating request.
type EventPublisher interface {
	Publish(subject string, payload interface{})
}

type natsPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

type eventEnvelope struct {
	Subject string      `json:"subject"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// NewEventPublisher wraps a NATS connection; a nil connection disables
// fan-out entirely.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	return &natsPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsPublisher) Publish(subject string, payload interface{}) {
	if p.conn == nil {
		return
	}

	data, err := json.Marshal(eventEnvelope{
		Subject: subject,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
