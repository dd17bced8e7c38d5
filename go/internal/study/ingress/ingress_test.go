package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/study/events"
	"github.com/mcdev12/studyroom/go/internal/study/outbox"
	"github.com/mcdev12/studyroom/go/internal/study/participant"
	"github.com/mcdev12/studyroom/go/internal/study/progress"
)

type solve struct {
	participantID string
	problemID     int
}

type fakeRecorder struct {
	mu     sync.Mutex
	solves []solve
	err    error
}

func (f *fakeRecorder) RecordSolve(ctx context.Context, participantID string, problemID int) (progress.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.solves = append(f.solves, solve{participantID, problemID})
	return progress.Result{SolvedCount: 1}, f.err
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []outbox.OutboxEvent
}

func (f *fakeOutbox) Enqueue(event outbox.OutboxEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return true
}

func TestParseProblemNumber(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{`1000`, 1000, false},
		{`"1000"`, 1000, false},
		{`" 1001\n"`, 1001, false},
		{`"abc"`, 0, true},
		{`""`, 0, true},
		{`null`, 0, true},
		{``, 0, true},
		{`10.5`, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseProblemNumber(json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseProblemNumber(%s) = %d, %v", tt.raw, got, err)
		}
		if err != nil && !errors.Is(err, ErrMalformedSubmission) {
			t.Errorf("ParseProblemNumber(%s) error = %v, want ErrMalformedSubmission", tt.raw, err)
		}
	}
}

func TestHandleSolveForwardsThenRecords(t *testing.T) {
	rec := &fakeRecorder{}
	ob := &fakeOutbox{}
	in := NewIngress(clockwork.NewFakeClock(), rec, ob)

	err := in.HandleSolve(context.Background(), Submission{
		ParticipantID:    "alice",
		ProblemNumber:    json.RawMessage(`" 1000 "`),
		SubmissionNumber: json.RawMessage(`77`),
		Code:             "print(1)",
		Language:         "python",
	})
	if err != nil {
		t.Fatalf("HandleSolve() error = %v", err)
	}

	if len(rec.solves) != 1 || rec.solves[0] != (solve{"alice", 1000}) {
		t.Errorf("recorded solves = %+v", rec.solves)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != outbox.EventTypeSubmissionReceived {
		t.Fatalf("outbox = %+v", ob.events)
	}

	var payload map[string]interface{}
	json.Unmarshal(ob.events[0].Payload, &payload)
	if payload["userId"] != "alice" || payload["problemNo"] != " 1000 " || payload["submitNo"] != float64(77) || payload["lang"] != "python" {
		t.Errorf("forwarded payload = %v", payload)
	}
}

func TestHandleSolveForwardsEvenWhenLocalFails(t *testing.T) {
	rec := &fakeRecorder{err: participant.ErrParticipantNotFound}
	ob := &fakeOutbox{}
	in := NewIngress(clockwork.NewFakeClock(), rec, ob)

	err := in.HandleSolve(context.Background(), Submission{ParticipantID: "ghost", ProblemNumber: json.RawMessage(`1`)})
	if !errors.Is(err, participant.ErrParticipantNotFound) {
		t.Errorf("HandleSolve() error = %v", err)
	}
	err = in.HandleSolve(context.Background(), Submission{ParticipantID: "ghost", ProblemNumber: json.RawMessage(`"x"`)})
	if !errors.Is(err, ErrMalformedSubmission) {
		t.Errorf("HandleSolve() error = %v", err)
	}
	if len(ob.events) != 2 {
		t.Errorf("forwarded %d records, want 2", len(ob.events))
	}
	if len(rec.solves) != 1 {
		t.Errorf("malformed submission reached the recorder")
	}
}

func TestHTTPHandlerAlwaysOK(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("boom")}
	ob := &fakeOutbox{}
	h := NewHTTPHandler(NewIngress(clockwork.NewFakeClock(), rec, ob), 0)

	bodies := []string{
		`{"participantId":"alice","problemNumber":1000,"submissionNumber":1,"code":"x","language":"go"}`,
		`{not json`,
		`{}`,
	}
	for _, body := range bodies {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/problem/submit", strings.NewReader(body)))
		if w.Code != http.StatusOK {
			t.Errorf("POST %q status = %d, want 200", body, w.Code)
		}
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/problem/submit", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", w.Code)
	}

	if len(rec.solves) != 1 {
		t.Errorf("recorder calls = %d, want 1", len(rec.solves))
	}
	if len(ob.events) != 2 {
		t.Errorf("forwarded records = %d, want 2 (decodable bodies only)", len(ob.events))
	}

	var first events.SubmissionReceivedPayload
	json.Unmarshal(ob.events[0].Payload, &first)
	if first.ParticipantID != "alice" || string(first.ProblemNumber) != "1000" {
		t.Errorf("forwarded = %+v", first)
	}
}
