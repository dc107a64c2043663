package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://x", DSN("postgres://x"))

	t.Setenv("POSTGRES_USER", "uno")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "5432")
	t.Setenv("PG_DATABASE", "rounds")
	assert.Equal(t, "postgres://uno:secret@db:5432/rounds", DSN(""))
}

// TestRoundStore needs a disposable database; set TEST_DATABASE_URL to run it.
func TestRoundStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := ConnectDB(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	store := NewRoundStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))

	room := uuid.New()
	a, b := uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	won := models.RoundRecord{
		RoundID: uuid.New(), RoomID: room, Players: []uuid.UUID{a, b}, Winner: a,
		Scores: map[uuid.UUID]int{a: 0, b: 42}, Reason: models.ReasonEmptyHand,
		StartedAt: now.Add(-time.Minute), EndedAt: now,
	}
	exhausted := models.RoundRecord{
		RoundID: uuid.New(), RoomID: room, Players: []uuid.UUID{a, b},
		Scores: map[uuid.UUID]int{a: 3, b: 7}, Reason: models.ReasonDeckExhausted,
		StartedAt: now, EndedAt: now.Add(time.Minute),
	}

	require.NoError(t, store.SaveRounds(ctx, []models.RoundRecord{won, exhausted}))
	// Redelivery of an already stored round is a no-op.
	require.NoError(t, store.SaveRounds(ctx, []models.RoundRecord{won}))

	rows, err := pool.Query(ctx, `SELECT id FROM rounds WHERE room_id = $1 ORDER BY ended_at DESC`, room)
	require.NoError(t, err)
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{exhausted.RoundID, won.RoundID}, ids)

	var score int
	var didWin bool
	err = pool.QueryRow(ctx, `SELECT score, did_win FROM round_scores WHERE round_id = $1 AND session_id = $2`, won.RoundID, b).Scan(&score, &didWin)
	require.NoError(t, err)
	assert.Equal(t, 42, score)
	assert.False(t, didWin)
}
