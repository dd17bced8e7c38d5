package models

import (
	"time"
)

// SessionState defines the lifecycle state of a study session.
type SessionState string

const (
	SessionStateActive SessionState = "ACTIVE"
	SessionStateEnded  SessionState = "ENDED"
)

// Problem is one entry of a session's problem set.
type Problem struct {
	Title      string              `json:"title"`
	ExternalID int                 `json:"problem_id"`
	Level      int                 `json:"level"`
	SolvedBy   map[string]struct{} `json:"-"`
}

// IsSolvedBy reports whether the participant has been credited for the problem.
func (p *Problem) IsSolvedBy(participantID string) bool {
	_, ok := p.SolvedBy[participantID]
	return ok
}

// ProblemDef is the caller-supplied description of a problem when a session starts.
type ProblemDef struct {
	Title      string `json:"title"`
	ExternalID int    `json:"problem_id"`
	Level      int    `json:"level"`
}

// ProblemStatus is a problem projected for a single participant.
type ProblemStatus struct {
	Title      string `json:"title"`
	ExternalID int    `json:"problem_id"`
	Level      int    `json:"level"`
	Solved     bool   `json:"is_solved"`
	SolvedBy   int    `json:"solved_by"`
}

// ProgressRecord tracks one participant's standing inside a session generation.
type ProgressRecord struct {
	ParticipantID         string `json:"participant_id"`
	DisplayName           string `json:"name"`
	AvatarURL             string `json:"avatar_url"`
	SolvedCount           int    `json:"solved_count"`
	CompletionTimeSeconds *int   `json:"completion_time_seconds"`
}

// Session is one timed study round under a room id.
type Session struct {
	ID              string                     `json:"session_id"`
	State           SessionState               `json:"state"`
	Generation      uint64                     `json:"generation"`
	StartedAt       time.Time                  `json:"started_at"`
	EndedAt         *time.Time                 `json:"ended_at,omitempty"`
	DurationSeconds int                        `json:"duration_seconds"`
	Problems        []*Problem                 `json:"-"`
	Standings       map[string]*ProgressRecord `json:"-"`
	Roster          []string                   `json:"-"`
}

// Problem looks up a problem by its external id.
func (s *Session) Problem(externalID int) (*Problem, bool) {
	for _, p := range s.Problems {
		if p.ExternalID == externalID {
			return p, true
		}
	}
	return nil, false
}

// Record returns the participant's progress record, if any.
func (s *Session) Record(participantID string) (*ProgressRecord, bool) {
	r, ok := s.Standings[participantID]
	return r, ok
}

// AddParticipant creates an empty standings entry for p unless one exists.
// It returns the (possibly pre-existing) record.
func (s *Session) AddParticipant(p Participant) *ProgressRecord {
	if r, ok := s.Standings[p.ID]; ok {
		return r
	}
	r := &ProgressRecord{
		ParticipantID: p.ID,
		DisplayName:   p.DisplayName,
		AvatarURL:     p.AvatarURL,
	}
	s.Standings[p.ID] = r
	s.Roster = append(s.Roster, p.ID)
	return r
}

// IsActive reports whether the session is still accepting solves.
func (s *Session) IsActive() bool {
	return s.State == SessionStateActive
}

// ElapsedSeconds returns whole seconds since the session started, never negative.
func (s *Session) ElapsedSeconds(now time.Time) int {
	elapsed := int(now.Sub(s.StartedAt).Seconds())
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// RemainingSeconds returns the time left before the session ends, floored at zero.
func (s *Session) RemainingSeconds(now time.Time) int {
	if !s.IsActive() {
		return 0
	}
	remaining := s.DurationSeconds - s.ElapsedSeconds(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StandingsList returns copies of the progress records in roster order.
func (s *Session) StandingsList() []ProgressRecord {
	out := make([]ProgressRecord, 0, len(s.Roster))
	for _, id := range s.Roster {
		r, ok := s.Standings[id]
		if !ok {
			continue
		}
		cp := *r
		if r.CompletionTimeSeconds != nil {
			t := *r.CompletionTimeSeconds
			cp.CompletionTimeSeconds = &t
		}
		out = append(out, cp)
	}
	return out
}
