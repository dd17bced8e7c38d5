package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mcdev12/studyroom/go/internal/study/participant"
	"github.com/mcdev12/studyroom/go/internal/study/session"
	"github.com/rs/zerolog/log"
)

const maxSubmissionBytes = 1 << 20

// HTTPHandler serves the submission endpoint. It answers 200 whatever happens.
type HTTPHandler struct {
	ingress *Ingress
	timeout time.Duration
}

func NewHTTPHandler(ingress *Ingress, timeout time.Duration) *HTTPHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPHandler{ingress: ingress, timeout: timeout}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodPost {
		log.Debug().Str("method", r.Method).Msg("ignoring non-POST submission")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmissionBytes))
	if err != nil {
		log.Warn().Err(err).Msg("failed to read submission body")
		return
	}
	var sub Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		log.Warn().Err(err).Msg("failed to decode submission")
		return
	}

	// The solve is applied even if the client goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	if err := h.ingress.HandleSolve(ctx, sub); err != nil {
		evt := log.Warn()
		if errors.Is(err, participant.ErrParticipantNotFound) || errors.Is(err, session.ErrSessionNotFound) {
			evt = log.Debug()
		}
		evt.Err(err).Str("participant_id", sub.ParticipantID).Msg("submission not applied")
	}
}

// RegisterRoutes mounts the handler at path.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, path string) {
	mux.Handle(path, h)
}
