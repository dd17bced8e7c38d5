package session

import (
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// MaxDurationSeconds is the longest session the registry accepts.
const MaxDurationSeconds = 24 * 60 * 60

// Registry owns every session known to the process, keyed by session id.
// It is not safe for concurrent use; the orchestrator is its only caller.
type Registry struct {
	clock       clockwork.Clock
	sessions    map[string]*models.Session
	generations map[string]uint64
}

// NewRegistry creates an empty registry.
func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		clock:       clock,
		sessions:    make(map[string]*models.Session),
		generations: make(map[string]uint64),
	}
}

// Create allocates a new generation of the session and replaces any prior one under the same id.
func (r *Registry) Create(sessionID string, problems []models.ProblemDef, durationSeconds int, participants []models.Participant) (*models.Session, error) {
	if err := validateCreate(sessionID, problems, durationSeconds); err != nil {
		return nil, err
	}

	r.generations[sessionID]++
	s := &models.Session{
		ID:              sessionID,
		State:           models.SessionStateActive,
		Generation:      r.generations[sessionID],
		StartedAt:       r.clock.Now(),
		DurationSeconds: durationSeconds,
		Problems:        make([]*models.Problem, 0, len(problems)),
		Standings:       make(map[string]*models.ProgressRecord, len(participants)),
		Roster:          make([]string, 0, len(participants)),
	}
	for _, p := range problems {
		s.Problems = append(s.Problems, &models.Problem{
			Title:      p.Title,
			ExternalID: p.ExternalID,
			Level:      p.Level,
			SolvedBy:   make(map[string]struct{}),
		})
	}
	for _, p := range participants {
		s.AddParticipant(p)
	}

	if prev, ok := r.sessions[sessionID]; ok && prev.IsActive() {
		log.Info().
			Str("session_id", sessionID).
			Uint64("superseded_generation", prev.Generation).
			Uint64("generation", s.Generation).
			Msg("active session superseded by restart")
	}
	r.sessions[sessionID] = s

	log.Info().
		Str("session_id", sessionID).
		Uint64("generation", s.Generation).
		Int("problems", len(s.Problems)).
		Int("participants", len(s.Roster)).
		Int("duration_seconds", durationSeconds).
		Msg("session created")

	return s, nil
}

// Get returns the current generation of a session.
func (r *Registry) Get(sessionID string) (*models.Session, bool) {
	s, ok := r.sessions[sessionID]
	return s, ok
}

// End transitions the session to ENDED when generation is still current.
// Stale or repeated calls are ignored and report false.
func (r *Registry) End(sessionID string, generation uint64) (*models.Session, bool) {
	s, ok := r.sessions[sessionID]
	if !ok || s.Generation != generation || !s.IsActive() {
		return nil, false
	}

	now := r.clock.Now()
	s.State = models.SessionStateEnded
	s.EndedAt = &now
	for _, id := range s.Roster {
		rec := s.Standings[id]
		if rec.CompletionTimeSeconds == nil {
			capped := s.DurationSeconds
			rec.CompletionTimeSeconds = &capped
		}
	}

	log.Info().
		Str("session_id", sessionID).
		Uint64("generation", generation).
		Msg("session ended")

	return s, true
}

// Stats returns counters for the info endpoint.
func (r *Registry) Stats() map[string]interface{} {
	active, ended := 0, 0
	for _, s := range r.sessions {
		if s.IsActive() {
			active++
		} else {
			ended++
		}
	}
	return map[string]interface{}{
		"active_sessions": active,
		"ended_sessions":  ended,
	}
}

func validateCreate(sessionID string, problems []models.ProblemDef, durationSeconds int) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrMalformedSession)
	}
	if durationSeconds <= 0 || durationSeconds > MaxDurationSeconds {
		return fmt.Errorf("%w: duration must be in [1, %d] seconds, got %d", ErrMalformedSession, MaxDurationSeconds, durationSeconds)
	}
	if len(problems) == 0 {
		return fmt.Errorf("%w: problem set is empty", ErrMalformedSession)
	}
	seen := make(map[int]bool, len(problems))
	for _, p := range problems {
		if seen[p.ExternalID] {
			return fmt.Errorf("%w: duplicate problem id %d", ErrMalformedSession, p.ExternalID)
		}
		seen[p.ExternalID] = true
	}
	return nil
}
