package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for every room broadcast.
type Event struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Room key
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType names a room broadcast.
type EventType string

const (
	EventTypeParticipantJoined EventType = "participantJoined"
	EventTypeParticipantLeft   EventType = "participantLeft"
	EventTypeSessionStarted    EventType = "sessionStarted"
	EventTypeProgressUpdated   EventType = "progressUpdated"
	EventTypeFinalStandings    EventType = "finalStandings"
	EventTypeSessionEnded      EventType = "sessionEnded"
)

// New builds an event envelope, marshalling payload into Data.
func New(sessionID string, eventType EventType, at time.Time, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}
