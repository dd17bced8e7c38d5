package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/mcdev12/studyroom/go/internal/study/session"
)

const (
	p1 = 1000
	p2 = 1001
)

func newSession(t *testing.T, clock clockwork.Clock, participants ...string) (*session.Registry, *models.Session) {
	t.Helper()
	r := session.NewRegistry(clock)
	var ps []models.Participant
	for _, id := range participants {
		ps = append(ps, models.Participant{ID: id, DisplayName: id})
	}
	s, err := r.Create("room", []models.ProblemDef{
		{Title: "P1", ExternalID: p1, Level: 1},
		{Title: "P2", ExternalID: p2, Level: 2},
	}, 600, ps)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return r, s
}

func countMembership(s *models.Session, id string) int {
	n := 0
	for _, p := range s.Problems {
		if p.IsSolvedBy(id) {
			n++
		}
	}
	return n
}

func TestWalkthrough(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r, s := newSession(t, clock, "A", "B")
	tr := NewTracker(clock)

	for _, id := range []string{"A", "B"} {
		if rec, _ := s.Record(id); rec.SolvedCount != 0 {
			t.Fatalf("%s starts with solvedCount %d", id, rec.SolvedCount)
		}
	}

	clock.Advance(30 * time.Second)
	res, err := tr.RecordSolve(s, "A", p1)
	if err != nil {
		t.Fatalf("RecordSolve(P1) error = %v", err)
	}
	if res.SolvedCount != 1 || res.AllSolved {
		t.Errorf("after P1: solved=%d allSolved=%v, want 1 false", res.SolvedCount, res.AllSolved)
	}
	if !res.Problems[0].Solved || res.Problems[1].Solved {
		t.Errorf("after P1: problems = %+v", res.Problems)
	}

	clock.Advance(60 * time.Second)
	res, err = tr.RecordSolve(s, "A", p2)
	if err != nil {
		t.Fatalf("RecordSolve(P2) error = %v", err)
	}
	if res.SolvedCount != 2 || !res.AllSolved {
		t.Errorf("after P2: solved=%d allSolved=%v, want 2 true", res.SolvedCount, res.AllSolved)
	}
	if res.CompletionTimeSeconds == nil || *res.CompletionTimeSeconds != 90 {
		t.Errorf("completion = %v, want 90", res.CompletionTimeSeconds)
	}

	clock.Advance(510 * time.Second)
	ended, ok := r.End("room", s.Generation)
	if !ok {
		t.Fatal("End() rejected current generation")
	}
	if got := *ended.Standings["B"].CompletionTimeSeconds; got != 600 {
		t.Errorf("B completion = %d, want 600", got)
	}
	if got := *ended.Standings["A"].CompletionTimeSeconds; got != 90 {
		t.Errorf("A completion = %d, want 90", got)
	}
	for _, rec := range ended.StandingsList() {
		if rec.CompletionTimeSeconds == nil || *rec.CompletionTimeSeconds > ended.DurationSeconds {
			t.Errorf("%s completion = %v, want <= duration", rec.ParticipantID, rec.CompletionTimeSeconds)
		}
	}
}

func TestDuplicateSolveIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, s := newSession(t, clock, "A")
	tr := NewTracker(clock)

	tr.RecordSolve(s, "A", p1)
	tr.RecordSolve(s, "A", p2)
	first := *s.Standings["A"].CompletionTimeSeconds

	clock.Advance(time.Minute)
	res, err := tr.RecordSolve(s, "A", p1)
	if err != nil {
		t.Fatalf("RecordSolve() error = %v", err)
	}
	if res.AllSolved {
		t.Error("repeat solve must not report completion again")
	}
	if got := len(s.Problems[0].SolvedBy); got != 1 {
		t.Errorf("|SolvedBy| = %d, want 1", got)
	}
	if got := *s.Standings["A"].CompletionTimeSeconds; got != first {
		t.Errorf("completion changed from %d to %d", first, got)
	}
}

func TestSolvedCountMatchesMembership(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, s := newSession(t, clock, "A", "B", "C")
	tr := NewTracker(clock)

	seq := []struct {
		who     string
		problem int
	}{
		{"A", p1}, {"B", p2}, {"A", p1}, {"C", p1}, {"B", p2}, {"B", p1}, {"A", p2}, {"C", p1},
	}
	for _, step := range seq {
		if _, err := tr.RecordSolve(s, step.who, step.problem); err != nil {
			t.Fatalf("RecordSolve(%s, %d) error = %v", step.who, step.problem, err)
		}
		for _, id := range s.Roster {
			if got, want := s.Standings[id].SolvedCount, countMembership(s, id); got != want {
				t.Fatalf("%s solvedCount = %d, membership = %d", id, got, want)
			}
		}
	}
}

func TestRecordSolveErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r, s := newSession(t, clock, "A")
	tr := NewTracker(clock)

	if _, err := tr.RecordSolve(s, "A", 42); !errors.Is(err, ErrProblemNotFound) {
		t.Errorf("unknown problem error = %v, want ErrProblemNotFound", err)
	}
	if s.Standings["A"].SolvedCount != 0 {
		t.Error("failed solve mutated standings")
	}

	r.End("room", s.Generation)
	if _, err := tr.RecordSolve(s, "A", p1); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("ended session error = %v, want ErrSessionEnded", err)
	}
	if s.Problems[0].IsSolvedBy("A") {
		t.Error("solve after end mutated SolvedBy")
	}
}

func TestLateJoinerGetsEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, s := newSession(t, clock, "A")
	tr := NewTracker(clock)

	res, err := tr.RecordSolve(s, "Z", p2)
	if err != nil {
		t.Fatalf("RecordSolve() error = %v", err)
	}
	if res.SolvedCount != 1 {
		t.Errorf("solvedCount = %d, want 1", res.SolvedCount)
	}
	if s.Roster[len(s.Roster)-1] != "Z" {
		t.Errorf("roster = %v, want Z appended", s.Roster)
	}
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, s := newSession(t, clock, "A")
	tr := NewTracker(clock)
	tr.RecordSolve(s, "A", p1)

	problems, all := tr.Snapshot(s, "A")
	if all {
		t.Error("Snapshot() all_solved = true with one problem open")
	}
	if len(problems) != 2 || !problems[0].Solved || problems[0].SolvedBy != 1 {
		t.Errorf("Snapshot() = %+v", problems)
	}

	if _, all := tr.Snapshot(s, "nobody"); all {
		t.Error("Snapshot() for stranger reports all solved")
	}
	if _, ok := s.Record("nobody"); ok {
		t.Error("Snapshot() created a standings entry")
	}
}
