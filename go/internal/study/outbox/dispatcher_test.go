package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []OutboxEvent
	err    error
	seen   chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{seen: make(chan struct{}, 64)}
}

func (p *recordingPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.seen <- struct{}{}
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for publish %d of %d", i+1, n)
		}
	}
}

func mustEvent(t *testing.T, eventType string) OutboxEvent {
	t.Helper()
	ev, err := NewEvent("room", eventType, time.Unix(0, 0), map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	return ev
}

func TestDispatcherRoutesByType(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(Config{Workers: 1, QueueSize: 8})
	grading := newRecordingPublisher()
	all := newRecordingPublisher()
	d.Register(EventTypeSubmissionReceived, grading)
	d.RegisterAll(all)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	d.Enqueue(mustEvent(t, EventTypeSubmissionReceived))
	d.Enqueue(mustEvent(t, EventTypeSessionStarted))

	waitFor(t, all.seen, 2)
	waitFor(t, grading.seen, 1)

	if got := grading.types(); len(got) != 1 || got[0] != EventTypeSubmissionReceived {
		t.Errorf("grading publisher saw %v", got)
	}
	if got := all.types(); len(got) != 2 {
		t.Errorf("catch-all publisher saw %v", got)
	}
}

func TestDispatcherCountsFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(Config{Workers: 1, QueueSize: 8})
	p := newRecordingPublisher()
	p.err = errors.New("downstream unavailable")
	d.RegisterAll(p)
	d.Start(ctx)

	d.Enqueue(mustEvent(t, EventTypeSessionFinalized))
	waitFor(t, p.seen, 1)

	deadline := time.Now().Add(2 * time.Second)
	for d.Stats()["failed"].(int64) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Stats() = %v, want one failure", d.Stats())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(p.types()); got != 1 {
		t.Errorf("publish attempts = %d, failures must not be retried", got)
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1, QueueSize: 2})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			d.Enqueue(mustEvent(t, EventTypeSessionStarted))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue() blocked on a full queue")
	}
	stats := d.Stats()
	if stats["dropped"].(int64) != 3 || stats["queued"].(int) != 2 {
		t.Errorf("Stats() = %v, want 3 dropped and 2 queued", stats)
	}
}

func TestStartTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(DefaultConfig())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Error("second Start() must fail")
	}
	cancel()
	d.Wait()
}

type fakeSubmitter struct {
	got json.RawMessage
	err error
}

func (f *fakeSubmitter) SubmitStudy(ctx context.Context, record json.RawMessage) ([]byte, error) {
	f.got = record
	return []byte("ok"), f.err
}

func TestGradingPublisher(t *testing.T) {
	sub := &fakeSubmitter{}
	p := NewGradingPublisher(sub)

	ev := mustEvent(t, EventTypeSubmissionReceived)
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if string(sub.got) != string(ev.Payload) {
		t.Errorf("forwarded %s, want %s", sub.got, ev.Payload)
	}

	if err := p.Publish(context.Background(), mustEvent(t, EventTypeSessionStarted)); err == nil {
		t.Error("Publish() accepted a non-submission event")
	}

	sub.err = errors.New("boom")
	if err := p.Publish(context.Background(), ev); err == nil {
		t.Error("Publish() swallowed a client error")
	}
}

func TestStreamMessage(t *testing.T) {
	ev := mustEvent(t, EventTypeSessionFinalized)

	msg, err := streamMessage("study.events", ev)
	if err != nil {
		t.Fatalf("streamMessage() error = %v", err)
	}
	if msg.Subject != "study.events.SessionFinalized.room" {
		t.Errorf("subject = %s", msg.Subject)
	}
	if msg.Header.Get(HeaderEventType) != EventTypeSessionFinalized || msg.Header.Get(HeaderSessionID) != "room" {
		t.Errorf("headers = %v", msg.Header)
	}

	var stored OutboxEvent
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		t.Fatalf("body is not an outbox event: %v", err)
	}
	var payload map[string]string
	json.Unmarshal(stored.Payload, &payload)
	if stored.ID != ev.ID || stored.SessionID != "room" || payload["k"] != "v" {
		t.Errorf("stored = %+v payload = %v", stored, payload)
	}
}

func TestRoomSubjectEscapesSessionID(t *testing.T) {
	tests := []struct {
		sessionID string
		want      string
	}{
		{"room", "study.events.SessionStarted.room"},
		{"algo.week 3", "study.events.SessionStarted.algo_week_3"},
		{"a*b>c", "study.events.SessionStarted.a_b_c"},
		{"", "study.events.SessionStarted._"},
	}
	for _, tt := range tests {
		if got := roomSubject("study.events", EventTypeSessionStarted, tt.sessionID); got != tt.want {
			t.Errorf("roomSubject(%q) = %s, want %s", tt.sessionID, got, tt.want)
		}
	}
}
