package outbox

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogPublisher only logs events. Used when no grading service is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("session_id", event.SessionID).
		RawJSON("payload", event.Payload).
		Msg("publishing event")
	return nil
}
