package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/study/events"
	"github.com/mcdev12/studyroom/go/internal/study/outbox"
	"github.com/mcdev12/studyroom/go/internal/study/progress"
	"github.com/rs/zerolog/log"
)

// ErrMalformedSubmission is returned for submissions missing a participant or a usable problem number.
var ErrMalformedSubmission = errors.New("malformed submission")

// Submission is the body posted by the browser extension after a judge accepts a solution.
type Submission struct {
	ParticipantID    string          `json:"participantId"`
	ProblemNumber    json.RawMessage `json:"problemNumber"`
	SubmissionNumber json.RawMessage `json:"submissionNumber"`
	Code             string          `json:"code"`
	Language         string          `json:"language"`
}

// SolveRecorder credits a solve to a participant's current session.
type SolveRecorder interface {
	RecordSolve(ctx context.Context, participantID string, problemID int) (progress.Result, error)
}

// Enqueuer takes fire-and-forget outbox work.
type Enqueuer interface {
	Enqueue(event outbox.OutboxEvent) bool
}

// Ingress is the entry point for solve events.
type Ingress struct {
	clock    clockwork.Clock
	recorder SolveRecorder
	outbox   Enqueuer
}

func NewIngress(clock clockwork.Clock, recorder SolveRecorder, ob Enqueuer) *Ingress {
	return &Ingress{clock: clock, recorder: recorder, outbox: ob}
}

// HandleSolve forwards the audit record and then records the solve. The forward
// is queued first and regardless of what happens locally.
func (i *Ingress) HandleSolve(ctx context.Context, sub Submission) error {
	i.forward(sub)

	if strings.TrimSpace(sub.ParticipantID) == "" {
		return fmt.Errorf("%w: participantId is required", ErrMalformedSubmission)
	}
	problemID, err := ParseProblemNumber(sub.ProblemNumber)
	if err != nil {
		return err
	}

	res, err := i.recorder.RecordSolve(ctx, sub.ParticipantID, problemID)
	if err != nil {
		return fmt.Errorf("record solve for %s: %w", sub.ParticipantID, err)
	}

	log.Info().
		Str("participant_id", sub.ParticipantID).
		Int("problem_id", problemID).
		Int("solved_count", res.SolvedCount).
		Bool("all_solved", res.AllSolved).
		Msg("solve recorded")
	return nil
}

func (i *Ingress) forward(sub Submission) {
	ev, err := outbox.NewEvent("", outbox.EventTypeSubmissionReceived, i.clock.Now(), events.SubmissionReceivedPayload{
		SubmissionNumber: sub.SubmissionNumber,
		ParticipantID:    sub.ParticipantID,
		ProblemNumber:    sub.ProblemNumber,
		Code:             sub.Code,
		Language:         sub.Language,
	})
	if err != nil {
		log.Error().Err(err).Str("participant_id", sub.ParticipantID).Msg("failed to build submission record")
		return
	}
	i.outbox.Enqueue(ev)
}

// ParseProblemNumber accepts a JSON number or a string holding one, surrounding whitespace allowed.
func ParseProblemNumber(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: problemNumber is required", ErrMalformedSubmission)
	}

	text := string(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = s
	}
	text = strings.TrimSpace(text)

	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: problemNumber %s is not an integer", ErrMalformedSubmission, raw)
	}
	return n, nil
}
