package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/sqlc-dev/pqtype"
)

const createSchema = `
CREATE TABLE IF NOT EXISTS study_results (
    session_id       TEXT        NOT NULL,
    generation       BIGINT      NOT NULL,
    started_at       TIMESTAMPTZ NOT NULL,
    ended_at         TIMESTAMPTZ NOT NULL,
    duration_seconds INTEGER     NOT NULL,
    problems         JSONB,
    archived_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (session_id, generation)
);
CREATE TABLE IF NOT EXISTS study_standings (
    session_id              TEXT    NOT NULL,
    generation              BIGINT  NOT NULL,
    participant_id          TEXT    NOT NULL,
    display_name            TEXT    NOT NULL,
    solved_count            INTEGER NOT NULL,
    completion_time_seconds INTEGER,
    PRIMARY KEY (session_id, generation, participant_id),
    FOREIGN KEY (session_id, generation) REFERENCES study_results (session_id, generation) ON DELETE CASCADE
)
`

func (q *Queries) CreateSchema(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, createSchema)
	return err
}

const insertStudyResult = `-- name: InsertStudyResult :exec
INSERT INTO study_results (session_id, generation, started_at, ended_at, duration_seconds, problems)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, generation) DO NOTHING
`

type InsertStudyResultParams struct {
	SessionID       string                `json:"session_id"`
	Generation      int64                 `json:"generation"`
	StartedAt       time.Time             `json:"started_at"`
	EndedAt         time.Time             `json:"ended_at"`
	DurationSeconds int32                 `json:"duration_seconds"`
	Problems        pqtype.NullRawMessage `json:"problems"`
}

func (q *Queries) InsertStudyResult(ctx context.Context, arg InsertStudyResultParams) error {
	_, err := q.db.ExecContext(ctx, insertStudyResult,
		arg.SessionID,
		arg.Generation,
		arg.StartedAt,
		arg.EndedAt,
		arg.DurationSeconds,
		arg.Problems,
	)
	return err
}

const insertStudyStanding = `-- name: InsertStudyStanding :exec
INSERT INTO study_standings (session_id, generation, participant_id, display_name, solved_count, completion_time_seconds)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, generation, participant_id) DO UPDATE
SET display_name = EXCLUDED.display_name,
    solved_count = EXCLUDED.solved_count,
    completion_time_seconds = EXCLUDED.completion_time_seconds
`

type InsertStudyStandingParams struct {
	SessionID             string        `json:"session_id"`
	Generation            int64         `json:"generation"`
	ParticipantID         string        `json:"participant_id"`
	DisplayName           string        `json:"display_name"`
	SolvedCount           int32         `json:"solved_count"`
	CompletionTimeSeconds sql.NullInt32 `json:"completion_time_seconds"`
}

func (q *Queries) InsertStudyStanding(ctx context.Context, arg InsertStudyStandingParams) error {
	_, err := q.db.ExecContext(ctx, insertStudyStanding,
		arg.SessionID,
		arg.Generation,
		arg.ParticipantID,
		arg.DisplayName,
		arg.SolvedCount,
		arg.CompletionTimeSeconds,
	)
	return err
}
