package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/mcdev12/studyroom/go/internal/study/events"
	"github.com/mcdev12/studyroom/go/internal/study/orchestrator"
	"github.com/mcdev12/studyroom/go/internal/study/outbox"
	"github.com/mcdev12/studyroom/go/internal/study/participant"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, *events.Event)               {}
func (nopBroadcaster) BroadcastExcept(string, string, *events.Event) {}
func (nopBroadcaster) Connected(string, string) bool                 { return false }

type nopOutbox struct{}

func (nopOutbox) Enqueue(outbox.OutboxEvent) bool { return true }

func setup(t *testing.T) (*Client, *orchestrator.Orchestrator, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	orch := orchestrator.NewOrchestrator(clockwork.NewFakeClock(), participant.RetentionRetain, nopBroadcaster{}, nopOutbox{})
	go orch.Run(ctx)

	mux := http.NewServeMux()
	path, handler := NewHandler(NewService(orch))
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(srv.Client(), srv.URL), orch, ctx
}

func TestQueries(t *testing.T) {
	client, orch, ctx := setup(t)

	if _, err := orch.Enter(ctx, orchestrator.EnterRequest{SessionID: "room", ParticipantID: "A", Name: "Alice", Role: models.RoleLeader}); err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if _, err := orch.StartSession(ctx, orchestrator.StartSessionRequest{
		SessionID:       "room",
		Problems:        []models.ProblemDef{{Title: "A+B", ExternalID: 1000, Level: 1}},
		DurationMinutes: 10,
	}); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if _, err := orch.RecordSolve(ctx, "A", 1000); err != nil {
		t.Fatalf("RecordSolve() error = %v", err)
	}

	sess, err := client.GetSession(ctx, "room")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if sess.State != models.SessionStateActive || sess.RemainingSeconds != 600 || len(sess.Problems) != 1 || sess.Problems[0].SolvedBy != 1 {
		t.Errorf("GetSession() = %+v", sess)
	}

	st, err := client.GetStandings(ctx, "room")
	if err != nil {
		t.Fatalf("GetStandings() error = %v", err)
	}
	if len(st.Standings) != 1 || st.Standings[0].DisplayName != "Alice" || st.Standings[0].CompletionTimeSeconds == nil {
		t.Errorf("GetStandings() = %+v", st)
	}

	info, err := client.GetSolvingInfo(ctx, "A")
	if err != nil {
		t.Fatalf("GetSolvingInfo() error = %v", err)
	}
	if !info.AllSolved || !info.Problems[0].Solved {
		t.Errorf("GetSolvingInfo() = %+v", info)
	}
}

func TestErrorCodes(t *testing.T) {
	client, _, ctx := setup(t)

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{"unknown session", func() error { _, err := client.GetSession(ctx, "nope"); return err }, connect.CodeNotFound},
		{"unknown standings", func() error { _, err := client.GetStandings(ctx, "nope"); return err }, connect.CodeNotFound},
		{"unknown participant", func() error { _, err := client.GetSolvingInfo(ctx, "ghost"); return err }, connect.CodeNotFound},
		{"missing session id", func() error { _, err := client.GetSession(ctx, ""); return err }, connect.CodeInvalidArgument},
		{"missing participant id", func() error { _, err := client.GetSolvingInfo(ctx, " "); return err }, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := connect.CodeOf(tt.call()); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}
