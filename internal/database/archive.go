// internal/database/archive.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/drawphone/internal/cache"
	"github.com/jason-s-yu/drawphone/internal/models"
)

// Schema creates the archive tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS completed_sessions (
	id           UUID PRIMARY KEY,
	code         TEXT NOT NULL,
	host_id      TEXT NOT NULL,
	player_count INT NOT NULL,
	rounds       INT NOT NULL,
	stacks       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS session_actions (
	id             BIGSERIAL PRIMARY KEY,
	session_code   TEXT NOT NULL,
	action_index   INT NOT NULL,
	actor_id       TEXT NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	recorded_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS session_actions_code_idx ON session_actions (session_code, action_index);
`

// Archive stores finished sessions and their action history.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive wraps an open pool.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// EnsureSchema applies Schema.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ArchiveSession records a completed session along with every stack it
// produced. Returns the archive row id.
func (a *Archive) ArchiveSession(ctx context.Context, s *models.Session) (uuid.UUID, error) {
	stacks, err := json.Marshal(s.Stacks)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal stacks: %w", err)
	}

	id := uuid.New()
	q := `
		INSERT INTO completed_sessions (id, code, host_id, player_count, rounds, stacks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := a.pool.Exec(ctx, q, id, s.Code, s.HostPlayerID, len(s.Seats), s.Round+1, stacks, s.CreatedAt); err != nil {
		return uuid.Nil, fmt.Errorf("insert completed session %s: %w", s.Code, err)
	}
	return id, nil
}

// InsertActions writes a batch of action records in a single transaction.
func (a *Archive) InsertActions(ctx context.Context, recs []cache.ActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO session_actions (
				session_code, action_index, actor_id, action_type, action_payload, recorded_at
			) VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, rec := range recs {
			var payload []byte
			if len(rec.ActionPayload) > 0 {
				payload = rec.ActionPayload
			}
			if _, err := tx.Exec(ctx, q,
				rec.SessionCode, rec.ActionIndex, rec.ActorID, rec.ActionType, payload,
				time.UnixMilli(rec.Timestamp),
			); err != nil {
				return fmt.Errorf("insert action %s/%d: %w", rec.SessionCode, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

// CountActions returns how many actions are stored for code.
func (a *Archive) CountActions(ctx context.Context, code string) (int, error) {
	var n int
	err := a.pool.QueryRow(ctx, `SELECT COUNT(*) FROM session_actions WHERE session_code = $1`, code).Scan(&n)
	return n, err
}
