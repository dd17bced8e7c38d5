package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// FireFunc is invoked once when a session's timer elapses. ctx is the
// context the timer was scheduled with.
type FireFunc func(ctx context.Context, sessionID string, generation uint64)

type timerKey struct {
	sessionID  string
	generation uint64
}

// SessionTimer schedules one-shot finalization callbacks. There is no cancel:
// a scheduled timer always fires unless ctx is done first, and the receiver
// relies on the generation it carries to ignore stale firings.
type SessionTimer struct {
	clock clockwork.Clock

	mu      sync.Mutex
	pending map[timerKey]clockwork.Timer
}

func NewSessionTimer(clock clockwork.Clock) *SessionTimer {
	return &SessionTimer{
		clock:   clock,
		pending: make(map[timerKey]clockwork.Timer),
	}
}

// Schedule arranges for onFire(ctx, sessionID, generation) to run after d.
// The timer is removed from the pending set only after onFire returns.
func (t *SessionTimer) Schedule(ctx context.Context, sessionID string, generation uint64, d time.Duration, onFire FireFunc) {
	key := timerKey{sessionID: sessionID, generation: generation}
	timer := t.clock.NewTimer(d)

	t.mu.Lock()
	t.pending[key] = timer
	t.mu.Unlock()

	go func() {
		defer t.remove(key)

		select {
		case <-timer.Chan():
			log.Debug().
				Str("session_id", sessionID).
				Uint64("generation", generation).
				Msg("session timer fired")
			onFire(ctx, sessionID, generation)
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			log.Debug().
				Str("session_id", sessionID).
				Uint64("generation", generation).
				Msg("session timer stopped by shutdown")
		}
	}()

	log.Debug().
		Str("session_id", sessionID).
		Uint64("generation", generation).
		Dur("duration", d).
		Msg("scheduled session timer")
}

// Pending returns the number of timers that have not completed yet.
func (t *SessionTimer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *SessionTimer) remove(key timerKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, key)
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
