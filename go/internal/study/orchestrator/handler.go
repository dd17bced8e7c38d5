package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/mcdev12/studyroom/go/internal/study/events"
	"github.com/mcdev12/studyroom/go/internal/study/outbox"
	"github.com/mcdev12/studyroom/go/internal/study/participant"
	"github.com/mcdev12/studyroom/go/internal/study/progress"
	"github.com/mcdev12/studyroom/go/internal/study/session"
	"github.com/rs/zerolog/log"
)

// Enter records the participant in the directory and announces them to the rest of the room.
func (o *Orchestrator) Enter(ctx context.Context, req EnterRequest) (EnterResult, error) {
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.ParticipantID) == "" {
		return EnterResult{}, fmt.Errorf("%w: session_id and participant_id are required", ErrMalformedRequest)
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if !req.Role.Valid() {
		return EnterResult{}, fmt.Errorf("%w: unknown role %q", ErrMalformedRequest, req.Role)
	}

	var res EnterResult
	err := o.do(ctx, func() {
		prev, known := o.directory.Get(req.ParticipantID)
		p := o.directory.Join(req.ParticipantID, req.SessionID, models.Profile{
			DisplayName: req.Name,
			AvatarURL:   req.AvatarURL,
		}, req.Role)

		if known && prev.Present && prev.CurrentSessionID != "" && prev.CurrentSessionID != req.SessionID {
			o.broadcast(prev.CurrentSessionID, events.EventTypeParticipantLeft, events.ParticipantLeftPayload{
				ParticipantID: prev.ID,
				Name:          prev.DisplayName,
			})
		}

		o.broadcastExcept(req.SessionID, p.ID, events.EventTypeParticipantJoined, events.ParticipantJoinedPayload{
			ParticipantID: p.ID,
			Name:          p.DisplayName,
			AvatarURL:     p.AvatarURL,
			Role:          p.Role,
		})

		res.Participants = o.directory.Members(req.SessionID)
		if s, ok := o.sessions.Get(req.SessionID); ok {
			res.SessionActive = s.IsActive()
		}

		log.Info().
			Str("session_id", req.SessionID).
			Str("participant_id", p.ID).
			Str("role", string(p.Role)).
			Int("present", len(res.Participants)).
			Msg("participant entered")
	})
	if err != nil {
		return EnterResult{}, err
	}
	return res, nil
}

// Leave clears the participant's presence in sessionID and tells the room.
// It is ignored when the participant has since entered another room or still
// has an open connection in this one.
func (o *Orchestrator) Leave(ctx context.Context, participantID, sessionID string) error {
	var leaveErr error
	err := o.do(ctx, func() {
		p, ok := o.directory.Get(participantID)
		if !ok {
			leaveErr = fmt.Errorf("%w: %s", participant.ErrParticipantNotFound, participantID)
			return
		}
		if !p.Present || p.CurrentSessionID != sessionID {
			log.Debug().
				Str("participant_id", participantID).
				Str("session_id", sessionID).
				Str("current_session_id", p.CurrentSessionID).
				Msg("ignoring stale leave")
			return
		}
		if o.broadcaster.Connected(sessionID, participantID) {
			log.Debug().
				Str("participant_id", participantID).
				Str("session_id", sessionID).
				Msg("ignoring leave, participant reconnected")
			return
		}

		before, _ := o.directory.Leave(participantID)
		o.broadcast(sessionID, events.EventTypeParticipantLeft, events.ParticipantLeftPayload{
			ParticipantID: before.ID,
			Name:          before.DisplayName,
		})
	})
	if err != nil {
		return err
	}
	return leaveErr
}

// StartSession creates a new generation for the room with everyone currently present,
// announces it and schedules its finalization.
func (o *Orchestrator) StartSession(ctx context.Context, req StartSessionRequest) (SessionView, error) {
	if req.DurationMinutes <= 0 || req.DurationMinutes > MaxDurationMinutes {
		return SessionView{}, fmt.Errorf("%w: duration_minutes must be in [1, %d], got %d",
			ErrMalformedRequest, MaxDurationMinutes, req.DurationMinutes)
	}

	var (
		view     SessionView
		startErr error
	)
	err := o.do(ctx, func() {
		members := o.directory.Members(req.SessionID)
		s, err := o.sessions.Create(req.SessionID, req.Problems, req.DurationMinutes*60, members)
		if err != nil {
			startErr = err
			return
		}

		duration := time.Duration(s.DurationSeconds) * time.Second
		o.timer.Schedule(o.runCtx, s.ID, s.Generation, duration, o.onTimerFired)

		payload := events.SessionStartedPayload{
			SessionID:       s.ID,
			Generation:      s.Generation,
			StartedAt:       s.StartedAt,
			DurationSeconds: s.DurationSeconds,
			Problems:        req.Problems,
			Participants:    append([]string(nil), s.Roster...),
		}
		o.broadcast(s.ID, events.EventTypeSessionStarted, payload)
		o.enqueue(s.ID, outbox.EventTypeSessionStarted, payload)

		view = o.viewOf(s)
	})
	if err != nil {
		return SessionView{}, err
	}
	return view, startErr
}

// RecordSolve credits a solve to the participant's current session and broadcasts the new progress.
func (o *Orchestrator) RecordSolve(ctx context.Context, participantID string, problemID int) (progress.Result, error) {
	var (
		res      progress.Result
		solveErr error
	)
	err := o.do(ctx, func() {
		s, p, err := o.resolve(participantID)
		if err != nil {
			solveErr = err
			return
		}

		// Late joiners get a standings entry carrying their profile.
		if _, known := s.Problem(problemID); known && s.IsActive() {
			s.AddParticipant(p)
		}
		res, solveErr = o.tracker.RecordSolve(s, participantID, problemID)
		if solveErr != nil {
			return
		}

		o.broadcast(s.ID, events.EventTypeProgressUpdated, events.ProgressUpdatedPayload{
			ParticipantID: participantID,
			Problems:      res.Problems,
			AllSolved:     res.SolvedCount == len(s.Problems),
		})

		if res.AllSolved {
			o.broadcast(s.ID, events.EventTypeFinalStandings, events.FinalStandingsPayload{
				Standings: s.StandingsList(),
			})
			o.enqueue(s.ID, outbox.EventTypeParticipantCompleted, events.ParticipantCompletedPayload{
				SessionID:             s.ID,
				Generation:            s.Generation,
				ParticipantID:         participantID,
				CompletionTimeSeconds: *res.CompletionTimeSeconds,
			})
			log.Info().
				Str("session_id", s.ID).
				Str("participant_id", participantID).
				Int("completion_seconds", *res.CompletionTimeSeconds).
				Msg("participant solved every problem")
		}
	})
	if err != nil {
		return progress.Result{}, err
	}
	return res, solveErr
}

// SolvingInfo reports the participant's problem list and the time left in their session.
func (o *Orchestrator) SolvingInfo(ctx context.Context, participantID string) (SolvingInfo, error) {
	var (
		info    SolvingInfo
		infoErr error
	)
	err := o.do(ctx, func() {
		s, _, err := o.resolve(participantID)
		if err != nil {
			infoErr = err
			return
		}
		info.Problems, info.AllSolved = o.tracker.Snapshot(s, participantID)
		info.RemainingSeconds = s.RemainingSeconds(o.clock.Now())
	})
	if err != nil {
		return SolvingInfo{}, err
	}
	return info, infoErr
}

// Standings returns the standings of a room's current generation.
func (o *Orchestrator) Standings(ctx context.Context, sessionID string) (StandingsView, error) {
	var (
		view     StandingsView
		queryErr error
	)
	err := o.do(ctx, func() {
		s, ok := o.sessions.Get(sessionID)
		if !ok {
			queryErr = fmt.Errorf("%w: %s", session.ErrSessionNotFound, sessionID)
			return
		}
		view = StandingsView{
			SessionID:  s.ID,
			State:      s.State,
			Generation: s.Generation,
			Standings:  s.StandingsList(),
		}
	})
	if err != nil {
		return StandingsView{}, err
	}
	return view, queryErr
}

// SessionState returns a summary of a room's current generation.
func (o *Orchestrator) SessionState(ctx context.Context, sessionID string) (SessionView, error) {
	var (
		view     SessionView
		queryErr error
	)
	err := o.do(ctx, func() {
		s, ok := o.sessions.Get(sessionID)
		if !ok {
			queryErr = fmt.Errorf("%w: %s", session.ErrSessionNotFound, sessionID)
			return
		}
		view = o.viewOf(s)
	})
	if err != nil {
		return SessionView{}, err
	}
	return view, queryErr
}

// ResolveSession returns the session id the participant last entered.
func (o *Orchestrator) ResolveSession(ctx context.Context, participantID string) (string, error) {
	var (
		sessionID  string
		resolveErr error
	)
	err := o.do(ctx, func() {
		id, ok := o.directory.ResolveSession(participantID)
		if !ok {
			resolveErr = fmt.Errorf("%w: %s", participant.ErrParticipantNotFound, participantID)
			return
		}
		sessionID = id
	})
	if err != nil {
		return "", err
	}
	return sessionID, resolveErr
}

// Stats returns counters for the info endpoint.
func (o *Orchestrator) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	err := o.do(ctx, func() {
		for k, v := range o.sessions.Stats() {
			stats[k] = v
		}
		stats["directory_entries"] = o.directory.Len()
		stats["pending_timers"] = o.timer.Pending()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// onTimerFired runs on the timer goroutine and hands finalization to the actor.
func (o *Orchestrator) onTimerFired(ctx context.Context, sessionID string, generation uint64) {
	if err := o.do(ctx, func() { o.finalize(sessionID, generation) }); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", sessionID).
			Uint64("generation", generation).
			Msg("could not finalize session")
	}
}

func (o *Orchestrator) finalize(sessionID string, generation uint64) {
	s, ok := o.sessions.End(sessionID, generation)
	if !ok {
		log.Debug().
			Str("session_id", sessionID).
			Uint64("generation", generation).
			Msg("ignoring stale session timer")
		return
	}

	standings := s.StandingsList()
	o.broadcast(s.ID, events.EventTypeFinalStandings, events.FinalStandingsPayload{Standings: standings})
	o.broadcast(s.ID, events.EventTypeSessionEnded, events.SessionEndedPayload{
		SessionID:  s.ID,
		Generation: s.Generation,
		EndedAt:    *s.EndedAt,
	})

	problems := make([]events.FinalizedProblem, len(s.Problems))
	for i, p := range s.Problems {
		solvedBy := make([]string, 0, len(p.SolvedBy))
		for _, id := range s.Roster {
			if p.IsSolvedBy(id) {
				solvedBy = append(solvedBy, id)
			}
		}
		problems[i] = events.FinalizedProblem{
			Title:      p.Title,
			ExternalID: p.ExternalID,
			Level:      p.Level,
			SolvedBy:   solvedBy,
		}
	}
	o.enqueue(s.ID, outbox.EventTypeSessionFinalized, events.SessionFinalizedPayload{
		SessionID:       s.ID,
		Generation:      s.Generation,
		StartedAt:       s.StartedAt,
		EndedAt:         *s.EndedAt,
		DurationSeconds: s.DurationSeconds,
		Problems:        problems,
		Standings:       standings,
	})
}

// resolve finds the participant's current session.
func (o *Orchestrator) resolve(participantID string) (*models.Session, models.Participant, error) {
	p, ok := o.directory.Get(participantID)
	if !ok || p.CurrentSessionID == "" {
		return nil, models.Participant{}, fmt.Errorf("%w: %s", participant.ErrParticipantNotFound, participantID)
	}
	s, ok := o.sessions.Get(p.CurrentSessionID)
	if !ok {
		return nil, p, fmt.Errorf("%w: %s", session.ErrSessionNotFound, p.CurrentSessionID)
	}
	return s, p, nil
}

func (o *Orchestrator) viewOf(s *models.Session) SessionView {
	problems := make([]models.ProblemStatus, len(s.Problems))
	for i, p := range s.Problems {
		problems[i] = models.ProblemStatus{
			Title:      p.Title,
			ExternalID: p.ExternalID,
			Level:      p.Level,
			SolvedBy:   len(p.SolvedBy),
		}
	}
	return SessionView{
		SessionID:        s.ID,
		State:            s.State,
		Generation:       s.Generation,
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
		DurationSeconds:  s.DurationSeconds,
		RemainingSeconds: s.RemainingSeconds(o.clock.Now()),
		Problems:         problems,
	}
}
