package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Headers set on every stream message.
const (
	HeaderEventType  = "Study-Event-Type"
	HeaderSessionID  = "Study-Session-ID"
	HeaderOccurredAt = "Study-Occurred-At"
)

type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	// Retention of archived room events.
	MaxAge time.Duration
	// Window in which a re-published event id is dropped by the server.
	DuplicateWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "STUDY_EVENTS",
		SubjectPrefix:   "study.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          30 * 24 * time.Hour,
		DuplicateWindow: 10 * time.Minute,
	}
}

// JetStreamPublisher copies outbox events onto a stream. Subjects are
// <prefix>.<event type>.<session id>, so consumers can follow one room with
// a wildcard on the event type.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("studyroom-outbox"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Str("stream", cfg.StreamName).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, studyStream(cfg))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("declare stream %s: %w", cfg.StreamName, err)
	}
	log.Info().
		Str("stream", stream.CachedInfo().Config.Name).
		Strs("subjects", stream.CachedInfo().Config.Subjects).
		Msg("JetStream stream ready")

	return &JetStreamPublisher{nc: nc, js: js, config: cfg}, nil
}

// studyStream is a single file-backed stream holding every room event.
func studyStream(cfg JetStreamConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Study room lifecycle and submission events",
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		Storage:     jetstream.FileStorage,
		MaxAge:      cfg.MaxAge,
		Duplicates:  cfg.DuplicateWindow,
	}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	msg, err := streamMessage(p.config.SubjectPrefix, event)
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(event.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish %s for %s: %w", event.EventType, event.SessionID, err)
	}
	if ack.Duplicate {
		log.Debug().Str("event_id", event.ID.String()).Msg("stream dropped duplicate event")
		return nil
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("session_id", event.SessionID).
		Uint64("sequence", ack.Sequence).
		Msg("event streamed")
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}

// roomSubject builds the subject for an event. Session ids are client supplied,
// so characters that are special in subjects become underscores.
func roomSubject(prefix, eventType, sessionID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, sessionID)
	if token == "" {
		token = "_"
	}
	return prefix + "." + eventType + "." + token
}

// streamMessage wraps the outbox event as stored on the stream. The payload is
// embedded as-is; routing fields travel in headers as well as the body.
func streamMessage(prefix string, event OutboxEvent) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.EventType, err)
	}

	msg := nats.NewMsg(roomSubject(prefix, event.EventType, event.SessionID))
	msg.Data = data
	msg.Header.Set(HeaderEventType, event.EventType)
	msg.Header.Set(HeaderSessionID, event.SessionID)
	msg.Header.Set(HeaderOccurredAt, event.CreatedAt.UTC().Format(time.RFC3339Nano))
	return msg, nil
}
