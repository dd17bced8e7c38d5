package gateway

import (
	"encoding/json"

	"github.com/mcdev12/studyroom/go/internal/models"
)

// Client command types.
const (
	CommandEnter          = "enter"
	CommandStartSession   = "startSession"
	CommandGetSolvingInfo = "getSolvingInfo"
	CommandGetResult      = "getResult"
)

const messageTypeAck = "ack"

// ClientMessage is a command sent by a client over the socket.
type ClientMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// AckMessage answers a ClientMessage with the same request id.
type AckMessage struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type enterData struct {
	SessionID     string      `json:"session_id"`
	ParticipantID string      `json:"participant_id"`
	Name          string      `json:"name"`
	AvatarURL     string      `json:"avatar_url"`
	Role          models.Role `json:"role"`
}

type startSessionData struct {
	SessionID       string              `json:"session_id"`
	Problems        []models.ProblemDef `json:"problems"`
	DurationMinutes int                 `json:"duration_minutes"`
}

type participantQuery struct {
	ParticipantID string `json:"participant_id"`
}

type sessionQuery struct {
	SessionID string `json:"session_id"`
}

type resultAck struct {
	Standings []models.ProgressRecord `json:"standings"`
}
