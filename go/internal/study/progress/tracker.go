package progress

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
)

// Result is the outcome of recording one solve.
type Result struct {
	Problems    []models.ProblemStatus
	SolvedCount int
	// AllSolved is true only for the solve that completed the whole set.
	AllSolved             bool
	CompletionTimeSeconds *int
}

// Tracker applies solve events to a session's progress records.
type Tracker struct {
	clock clockwork.Clock
}

// NewTracker creates a tracker reading time from clock.
func NewTracker(clock clockwork.Clock) *Tracker {
	return &Tracker{clock: clock}
}

// RecordSolve credits participantID with problemID. Re-crediting is a no-op.
func (t *Tracker) RecordSolve(s *models.Session, participantID string, problemID int) (Result, error) {
	if !s.IsActive() {
		return Result{}, fmt.Errorf("%w: %s generation %d", ErrSessionEnded, s.ID, s.Generation)
	}
	problem, ok := s.Problem(problemID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %d in %s", ErrProblemNotFound, problemID, s.ID)
	}

	problem.SolvedBy[participantID] = struct{}{}

	rec, ok := s.Record(participantID)
	if !ok {
		rec = s.AddParticipant(models.Participant{ID: participantID})
	}
	rec.SolvedCount = countSolved(s, participantID)

	res := Result{
		Problems:    project(s, participantID),
		SolvedCount: rec.SolvedCount,
	}

	if rec.SolvedCount == len(s.Problems) && rec.CompletionTimeSeconds == nil {
		elapsed := s.ElapsedSeconds(t.clock.Now())
		if elapsed > s.DurationSeconds {
			elapsed = s.DurationSeconds
		}
		rec.CompletionTimeSeconds = &elapsed
		res.AllSolved = true
	}
	if rec.CompletionTimeSeconds != nil {
		v := *rec.CompletionTimeSeconds
		res.CompletionTimeSeconds = &v
	}

	return res, nil
}

// Snapshot projects the session's problems for participantID without mutating anything.
func (t *Tracker) Snapshot(s *models.Session, participantID string) ([]models.ProblemStatus, bool) {
	problems := project(s, participantID)
	return problems, allSolved(problems)
}

func countSolved(s *models.Session, participantID string) int {
	n := 0
	for _, p := range s.Problems {
		if p.IsSolvedBy(participantID) {
			n++
		}
	}
	return n
}

func project(s *models.Session, participantID string) []models.ProblemStatus {
	out := make([]models.ProblemStatus, len(s.Problems))
	for i, p := range s.Problems {
		out[i] = models.ProblemStatus{
			Title:      p.Title,
			ExternalID: p.ExternalID,
			Level:      p.Level,
			Solved:     p.IsSolvedBy(participantID),
			SolvedBy:   len(p.SolvedBy),
		}
	}
	return out
}

func allSolved(problems []models.ProblemStatus) bool {
	if len(problems) == 0 {
		return false
	}
	for _, p := range problems {
		if !p.Solved {
			return false
		}
	}
	return true
}
