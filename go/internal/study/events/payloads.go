package events

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/studyroom/go/internal/models"
)

// Payload types shared by the orchestrator, gateway and outbox packages.

// ParticipantJoinedPayload is sent to the rest of the room when someone enters.
type ParticipantJoinedPayload struct {
	ParticipantID string      `json:"participant_id"`
	Name          string      `json:"name"`
	AvatarURL     string      `json:"avatar_url"`
	Role          models.Role `json:"role"`
}

// ParticipantLeftPayload is sent when a participant's last connection closes.
type ParticipantLeftPayload struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

// SessionStartedPayload announces a new session generation.
type SessionStartedPayload struct {
	SessionID       string              `json:"session_id"`
	Generation      uint64              `json:"generation"`
	StartedAt       time.Time           `json:"started_at"`
	DurationSeconds int                 `json:"duration_seconds"`
	Problems        []models.ProblemDef `json:"problems"`
	Participants    []string            `json:"participants"`
}

// ProgressUpdatedPayload carries one participant's solve state after a solve.
type ProgressUpdatedPayload struct {
	ParticipantID string                 `json:"participant_id"`
	Problems      []models.ProblemStatus `json:"problems"`
	AllSolved     bool                   `json:"all_solved"`
}

// FinalStandingsPayload is the standings list in roster order.
type FinalStandingsPayload struct {
	Standings []models.ProgressRecord `json:"standings"`
}

// SessionEndedPayload marks the end of a generation.
type SessionEndedPayload struct {
	SessionID  string    `json:"session_id"`
	Generation uint64    `json:"generation"`
	EndedAt    time.Time `json:"ended_at"`
}

// SubmissionReceivedPayload is the audit record forwarded to the grading service.
// Submission and problem numbers are forwarded exactly as they arrived.
type SubmissionReceivedPayload struct {
	SubmissionNumber json.RawMessage `json:"submitNo"`
	ParticipantID    string          `json:"userId"`
	ProblemNumber    json.RawMessage `json:"problemNo"`
	Code             string          `json:"code"`
	Language         string          `json:"lang"`
}

// ParticipantCompletedPayload is emitted when a participant solves the whole set.
type ParticipantCompletedPayload struct {
	SessionID             string `json:"session_id"`
	Generation            uint64 `json:"generation"`
	ParticipantID         string `json:"participant_id"`
	CompletionTimeSeconds int    `json:"completion_time_seconds"`
}

// SessionFinalizedPayload is the archived snapshot of an ended generation.
type SessionFinalizedPayload struct {
	SessionID       string                  `json:"session_id"`
	Generation      uint64                  `json:"generation"`
	StartedAt       time.Time               `json:"started_at"`
	EndedAt         time.Time               `json:"ended_at"`
	DurationSeconds int                     `json:"duration_seconds"`
	Problems        []FinalizedProblem      `json:"problems"`
	Standings       []models.ProgressRecord `json:"standings"`
}

// FinalizedProblem lists who solved a problem by the end of a generation.
type FinalizedProblem struct {
	Title      string   `json:"title"`
	ExternalID int      `json:"problem_id"`
	Level      int      `json:"level"`
	SolvedBy   []string `json:"solved_by"`
}
