// internal/database/rounds.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/uno/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	id         UUID PRIMARY KEY,
	room_id    UUID NOT NULL,
	winner     UUID,
	reason     TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS round_scores (
	round_id   UUID NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
	session_id UUID NOT NULL,
	seat       INT NOT NULL,
	score      INT NOT NULL,
	did_win    BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (round_id, session_id)
);

CREATE INDEX IF NOT EXISTS rounds_room_idx ON rounds (room_id, ended_at DESC);
`

// RoundStore persists finished rounds.
type RoundStore struct {
	pool *pgxpool.Pool
}

func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

// EnsureSchema creates the round tables if they do not exist yet.
func (s *RoundStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating round schema: %w", err)
	}
	return nil
}

// SaveRounds writes a batch of records in one transaction. Records already
// stored are left untouched, so redelivered batches are harmless.
func (s *RoundStore) SaveRounds(ctx context.Context, recs []models.RoundRecord) error {
	err := beginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertRoundTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("round %s: %w", rec.RoundID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert rounds: %w", err)
	}
	return nil
}

func insertRoundTx(ctx context.Context, tx pgx.Tx, rec models.RoundRecord) error {
	var winner *uuid.UUID
	if rec.Winner != uuid.Nil {
		winner = &rec.Winner
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO rounds (id, room_id, winner, reason, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, rec.RoundID, rec.RoomID, winner, string(rec.Reason), rec.StartedAt, rec.EndedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	for seat, pid := range rec.Players {
		_, err := tx.Exec(ctx, `
			INSERT INTO round_scores (round_id, session_id, seat, score, did_win)
			VALUES ($1, $2, $3, $4, $5)
		`, rec.RoundID, pid, seat, rec.Scores[pid], pid == rec.Winner)
		if err != nil {
			return err
		}
	}
	return nil
}

// beginTxFunc starts a transaction on pool, runs f and commits, rolling back
// when f fails.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}
