package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// StudySubmitter is the grading service call, implemented by grading_client.GradingClient.
type StudySubmitter interface {
	SubmitStudy(ctx context.Context, record json.RawMessage) ([]byte, error)
}

// GradingPublisher forwards SubmissionReceived payloads to the grading service.
// The response is only logged.
type GradingPublisher struct {
	client StudySubmitter
}

func NewGradingPublisher(client StudySubmitter) *GradingPublisher {
	return &GradingPublisher{client: client}
}

func (p *GradingPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	if event.EventType != EventTypeSubmissionReceived {
		return fmt.Errorf("grading publisher cannot handle %s", event.EventType)
	}

	resp, err := p.client.SubmitStudy(ctx, event.Payload)
	if err != nil {
		return fmt.Errorf("forward submission: %w", err)
	}

	log.Info().
		Str("event_id", event.ID.String()).
		Str("session_id", event.SessionID).
		Int("response_bytes", len(resp)).
		Msg("submission forwarded to grading service")
	return nil
}
