package orchestrator

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/study/events"
	"github.com/mcdev12/studyroom/go/internal/study/outbox"
	"github.com/mcdev12/studyroom/go/internal/study/participant"
	"github.com/mcdev12/studyroom/go/internal/study/progress"
	"github.com/mcdev12/studyroom/go/internal/study/session"
	"github.com/rs/zerolog/log"
)

// Broadcaster fans events out to the connections of a room.
type Broadcaster interface {
	Broadcast(sessionID string, event *events.Event)
	BroadcastExcept(sessionID, participantID string, event *events.Event)
	// Connected reports whether the participant has an open connection in the room.
	Connected(sessionID, participantID string) bool
}

// Outbox accepts fire-and-forget work. Enqueue must not block.
type Outbox interface {
	Enqueue(event outbox.OutboxEvent) bool
}

type command struct {
	fn   func()
	done chan struct{}
}

// Orchestrator is the single actor that owns every room's state. All reads and
// mutations run as commands on the Run goroutine, one at a time.
type Orchestrator struct {
	clock       clockwork.Clock
	sessions    *session.Registry
	directory   *participant.Directory
	tracker     *progress.Tracker
	timer       *SessionTimer
	broadcaster Broadcaster
	outbox      Outbox

	cmdCh chan command

	// runCtx is only touched from the Run goroutine.
	runCtx context.Context
}

func NewOrchestrator(clock clockwork.Clock, policy participant.RetentionPolicy, broadcaster Broadcaster, ob Outbox) *Orchestrator {
	return &Orchestrator{
		clock:       clock,
		sessions:    session.NewRegistry(clock),
		directory:   participant.NewDirectory(clock, policy),
		tracker:     progress.NewTracker(clock),
		timer:       NewSessionTimer(clock),
		broadcaster: broadcaster,
		outbox:      ob,
		cmdCh:       make(chan command, 64),
		runCtx:      context.Background(),
	}
}

// SetBroadcaster replaces the broadcaster. It must be called before Run.
func (o *Orchestrator) SetBroadcaster(b Broadcaster) {
	o.broadcaster = b
}

// Timer exposes the session timer for tests and stats.
func (o *Orchestrator) Timer() *SessionTimer {
	return o.timer
}

// Run processes commands until ctx is cancelled. Timers scheduled by this
// orchestrator stop when ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.runCtx = ctx
	log.Info().
		Str("retention", string(o.directory.Policy())).
		Msg("study orchestrator started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("study orchestrator shutting down")
			return nil
		case cmd := <-o.cmdCh:
			o.exec(cmd)
		}
	}
}

func (o *Orchestrator) exec(cmd command) {
	defer close(cmd.done)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("orchestrator command panicked")
		}
	}()
	cmd.fn()
}

// do runs fn on the actor goroutine and waits for it to finish or for ctx to end.
func (o *Orchestrator) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case o.cmdCh <- cmd:
	case <-ctx.Done():
		return fmt.Errorf("submit command: %w", ctx.Err())
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("await command: %w", ctx.Err())
	}
}

func (o *Orchestrator) broadcast(sessionID string, eventType events.EventType, payload interface{}) {
	ev, err := events.New(sessionID, eventType, o.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to build broadcast")
		return
	}
	o.broadcaster.Broadcast(sessionID, ev)
}

func (o *Orchestrator) broadcastExcept(sessionID, participantID string, eventType events.EventType, payload interface{}) {
	ev, err := events.New(sessionID, eventType, o.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to build broadcast")
		return
	}
	o.broadcaster.BroadcastExcept(sessionID, participantID, ev)
}

func (o *Orchestrator) enqueue(sessionID, eventType string, payload interface{}) {
	ev, err := outbox.NewEvent(sessionID, eventType, o.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to build outbox event")
		return
	}
	o.outbox.Enqueue(ev)
}
