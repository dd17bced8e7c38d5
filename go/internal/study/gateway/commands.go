package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/studyroom/go/internal/study/orchestrator"
	"github.com/rs/zerolog/log"
)

// CommandHandler executes client commands against room state.
type CommandHandler interface {
	Enter(ctx context.Context, req orchestrator.EnterRequest) (orchestrator.EnterResult, error)
	Leave(ctx context.Context, participantID, sessionID string) error
	StartSession(ctx context.Context, req orchestrator.StartSessionRequest) (orchestrator.SessionView, error)
	SolvingInfo(ctx context.Context, participantID string) (orchestrator.SolvingInfo, error)
	Standings(ctx context.Context, sessionID string) (orchestrator.StandingsView, error)
}

var errNotEntered = errors.New("connection has not entered a room")

// handleClientMessage decodes one command, runs it and acks the result.
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("discarding undecodable client message")
		c.ack(AckMessage{Error: fmt.Sprintf("%v: %v", orchestrator.ErrMalformedRequest, err)})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.CommandTimeout)
	defer cancel()

	data, err := c.dispatch(ctx, msg)
	reply := AckMessage{RequestID: msg.RequestID, Data: data}
	if err != nil {
		reply.Data = nil
		reply.Error = err.Error()
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("command", msg.Type).
			Msg("client command failed")
	}
	c.ack(reply)
}

func (c *Connection) dispatch(ctx context.Context, msg ClientMessage) (interface{}, error) {
	h := c.Manager.handler
	if h == nil {
		return nil, fmt.Errorf("no command handler configured")
	}

	switch msg.Type {
	case CommandEnter:
		var d enterData
		if err := decodeData(msg.Data, &d); err != nil {
			return nil, err
		}
		if strings.TrimSpace(d.SessionID) == "" || strings.TrimSpace(d.ParticipantID) == "" {
			return nil, fmt.Errorf("%w: session_id and participant_id are required", orchestrator.ErrMalformedRequest)
		}
		// Join the room first so nothing broadcast after the enter is missed.
		prevSession, prevParticipant := c.Manager.bind(c, d.SessionID, d.ParticipantID)
		res, err := h.Enter(ctx, orchestrator.EnterRequest{
			SessionID:     d.SessionID,
			ParticipantID: d.ParticipantID,
			Name:          d.Name,
			AvatarURL:     d.AvatarURL,
			Role:          d.Role,
		})
		if err != nil {
			c.Manager.bind(c, prevSession, prevParticipant)
			return nil, err
		}
		return res, nil

	case CommandStartSession:
		var d startSessionData
		if err := decodeData(msg.Data, &d); err != nil {
			return nil, err
		}
		if d.SessionID == "" {
			d.SessionID, _ = c.Manager.binding(c)
		}
		if d.SessionID == "" {
			return nil, errNotEntered
		}
		return h.StartSession(ctx, orchestrator.StartSessionRequest{
			SessionID:       d.SessionID,
			Problems:        d.Problems,
			DurationMinutes: d.DurationMinutes,
		})

	case CommandGetSolvingInfo:
		var d participantQuery
		if err := decodeData(msg.Data, &d); err != nil {
			return nil, err
		}
		if d.ParticipantID == "" {
			_, d.ParticipantID = c.Manager.binding(c)
		}
		if d.ParticipantID == "" {
			return nil, errNotEntered
		}
		return h.SolvingInfo(ctx, d.ParticipantID)

	case CommandGetResult:
		var d sessionQuery
		if err := decodeData(msg.Data, &d); err != nil {
			return nil, err
		}
		if d.SessionID == "" {
			d.SessionID, _ = c.Manager.binding(c)
		}
		if d.SessionID == "" {
			return nil, errNotEntered
		}
		view, err := h.Standings(ctx, d.SessionID)
		if err != nil {
			return nil, err
		}
		return resultAck{Standings: view.Standings}, nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", orchestrator.ErrMalformedRequest, msg.Type)
	}
}

// decodeData unmarshals command data; absent data leaves v at its zero value.
func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", orchestrator.ErrMalformedRequest, err)
	}
	return nil
}

func (c *Connection) ack(reply AckMessage) {
	reply.Type = messageTypeAck
	data, err := json.Marshal(reply)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal ack")
		return
	}
	if !c.trySend(data) {
		log.Warn().Str("connection_id", c.ID).Msg("send buffer full, dropping ack")
	}
}
