package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/studyroom/go/internal/sqlutil"
	"github.com/mcdev12/studyroom/go/internal/study/archive/db"
	"github.com/mcdev12/studyroom/go/internal/study/events"
	"github.com/mcdev12/studyroom/go/internal/study/outbox"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"
)

// Querier is the subset of generated queries the archive writes through.
type Querier interface {
	InsertStudyResult(ctx context.Context, arg db.InsertStudyResultParams) error
	InsertStudyStanding(ctx context.Context, arg db.InsertStudyStandingParams) error
}

// Repository stores final standings of ended sessions in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// EnsureSchema creates the archive tables if they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if err := db.New(r.db).CreateSchema(ctx); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// Publish archives a SessionFinalized event. Other event types are ignored.
func (r *Repository) Publish(ctx context.Context, event outbox.OutboxEvent) error {
	if event.EventType != outbox.EventTypeSessionFinalized {
		return nil
	}

	var payload events.SessionFinalizedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode finalized session %s: %w", event.SessionID, err)
	}

	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) *db.Queries { return db.New(tx) }, func(q *db.Queries) error {
		return writeFinalized(ctx, q, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to archive session %s generation %d: %w",
			payload.SessionID, payload.Generation, err)
	}

	log.Info().
		Str("session_id", payload.SessionID).
		Uint64("generation", payload.Generation).
		Int("standings", len(payload.Standings)).
		Msg("archived final standings")
	return nil
}

func writeFinalized(ctx context.Context, q Querier, payload events.SessionFinalizedPayload) error {
	problems, err := json.Marshal(payload.Problems)
	if err != nil {
		return fmt.Errorf("failed to marshal problems: %w", err)
	}

	if err := q.InsertStudyResult(ctx, db.InsertStudyResultParams{
		SessionID:       payload.SessionID,
		Generation:      int64(payload.Generation),
		StartedAt:       payload.StartedAt,
		EndedAt:         payload.EndedAt,
		DurationSeconds: int32(payload.DurationSeconds),
		Problems:        pqtype.NullRawMessage{RawMessage: problems, Valid: len(payload.Problems) > 0},
	}); err != nil {
		return fmt.Errorf("failed to insert study result: %w", err)
	}

	for _, rec := range payload.Standings {
		if err := q.InsertStudyStanding(ctx, db.InsertStudyStandingParams{
			SessionID:             payload.SessionID,
			Generation:            int64(payload.Generation),
			ParticipantID:         rec.ParticipantID,
			DisplayName:           rec.DisplayName,
			SolvedCount:           int32(rec.SolvedCount),
			CompletionTimeSeconds: sqlutil.ToSqlInt32(rec.CompletionTimeSeconds),
		}); err != nil {
			return fmt.Errorf("failed to insert standing for %s: %w", rec.ParticipantID, err)
		}
	}
	return nil
}
