package orchestrator

import (
	"time"

	"github.com/mcdev12/studyroom/go/internal/models"
)

// EnterRequest is a participant entering a room.
type EnterRequest struct {
	SessionID     string      `json:"session_id"`
	ParticipantID string      `json:"participant_id"`
	Name          string      `json:"name"`
	AvatarURL     string      `json:"avatar_url"`
	Role          models.Role `json:"role"`
}

// EnterResult lists who is in the room, the caller included.
type EnterResult struct {
	Participants  []models.Participant `json:"participants"`
	SessionActive bool                 `json:"session_active"`
}

// MaxDurationMinutes bounds the length of a session.
const MaxDurationMinutes = 24 * 60

// StartSessionRequest starts a new generation of a room's session.
type StartSessionRequest struct {
	SessionID       string              `json:"session_id"`
	Problems        []models.ProblemDef `json:"problems"`
	DurationMinutes int                 `json:"duration_minutes"`
}

// SessionView is a read-only summary of a session.
type SessionView struct {
	SessionID        string                 `json:"session_id"`
	State            models.SessionState    `json:"state"`
	Generation       uint64                 `json:"generation"`
	StartedAt        time.Time              `json:"started_at"`
	EndedAt          *time.Time             `json:"ended_at,omitempty"`
	DurationSeconds  int                    `json:"duration_seconds"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	Problems         []models.ProblemStatus `json:"problems"`
}

// SolvingInfo is one participant's view of the running session.
type SolvingInfo struct {
	Problems         []models.ProblemStatus `json:"problems"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	AllSolved        bool                   `json:"all_solved"`
}

// StandingsView is the standings list of a session.
type StandingsView struct {
	SessionID  string                  `json:"session_id"`
	State      models.SessionState     `json:"state"`
	Generation uint64                  `json:"generation"`
	Standings  []models.ProgressRecord `json:"standings"`
}
