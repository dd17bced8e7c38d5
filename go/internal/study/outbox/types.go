package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types forwarded through the outbox.
const (
	EventTypeSubmissionReceived   = "SubmissionReceived"
	EventTypeSessionStarted       = "SessionStarted"
	EventTypeSessionFinalized     = "SessionFinalized"
	EventTypeParticipantCompleted = "ParticipantCompleted"
)

// OutboxEvent is a unit of fire-and-forget work handed to the dispatcher.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// EventPublisher delivers one event to a downstream system.
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, event OutboxEvent) error

func (f PublisherFunc) Publish(ctx context.Context, event OutboxEvent) error {
	return f(ctx, event)
}

// NewEvent builds an outbox event with a fresh id, marshalling payload.
func NewEvent(sessionID, eventType string, at time.Time, payload interface{}) (OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		ID:        uuid.New(),
		SessionID: sessionID,
		EventType: eventType,
		Payload:   data,
		CreatedAt: at,
	}, nil
}
