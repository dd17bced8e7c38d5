package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/studyroom/go/internal/study/orchestrator"
	"github.com/mcdev12/studyroom/go/internal/study/participant"
	"github.com/mcdev12/studyroom/go/internal/study/session"
	"github.com/rs/zerolog/log"
)

// Querier is the read side of the orchestrator.
type Querier interface {
	SessionState(ctx context.Context, sessionID string) (orchestrator.SessionView, error)
	Standings(ctx context.Context, sessionID string) (orchestrator.StandingsView, error)
	SolvingInfo(ctx context.Context, participantID string) (orchestrator.SolvingInfo, error)
}

// Service implements the read-only StudyService.
type Service struct {
	querier Querier
}

func NewService(querier Querier) *Service {
	return &Service{querier: querier}
}

func (s *Service) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[GetSessionResponse], error) {
	id := strings.TrimSpace(req.Msg.SessionID)
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}

	view, err := s.querier.SessionState(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GetSessionResponse{
		SessionID:        view.SessionID,
		State:            view.State,
		Generation:       view.Generation,
		StartedAt:        view.StartedAt,
		EndedAt:          view.EndedAt,
		DurationSeconds:  view.DurationSeconds,
		RemainingSeconds: view.RemainingSeconds,
		Problems:         view.Problems,
	}), nil
}

func (s *Service) GetStandings(ctx context.Context, req *connect.Request[GetStandingsRequest]) (*connect.Response[GetStandingsResponse], error) {
	id := strings.TrimSpace(req.Msg.SessionID)
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}

	view, err := s.querier.Standings(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GetStandingsResponse{
		SessionID:  view.SessionID,
		State:      view.State,
		Generation: view.Generation,
		Standings:  view.Standings,
	}), nil
}

func (s *Service) GetSolvingInfo(ctx context.Context, req *connect.Request[GetSolvingInfoRequest]) (*connect.Response[GetSolvingInfoResponse], error) {
	id := strings.TrimSpace(req.Msg.ParticipantID)
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("participant_id is required"))
	}

	info, err := s.querier.SolvingInfo(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GetSolvingInfoResponse{
		Problems:         info.Problems,
		RemainingSeconds: info.RemainingSeconds,
		AllSolved:        info.AllSolved,
	}), nil
}

// NewHandler returns the mount path and handler for the service.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetSessionProcedure, connect.NewUnaryHandler(GetSessionProcedure, svc.GetSession, opts...))
	mux.Handle(GetStandingsProcedure, connect.NewUnaryHandler(GetStandingsProcedure, svc.GetStandings, opts...))
	mux.Handle(GetSolvingInfoProcedure, connect.NewUnaryHandler(GetSolvingInfoProcedure, svc.GetSolvingInfo, opts...))

	log.Debug().Str("service", StudyServiceName).Msg("connect handlers created")
	return "/" + StudyServiceName + "/", mux
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, participant.ErrParticipantNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
