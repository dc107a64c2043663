// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/uno/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list finished rounds are pushed onto.
const DefaultQueueName = "uno_rounds"

// ErrInvalidRecord marks a queue entry that is not a round record. The entry
// has already been removed from the queue.
var ErrInvalidRecord = errors.New("invalid round record")

// ConnectRedis opens a client for addr/db and checks it with a PING.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RoundQueue pushes finished rounds onto a Redis list for the historian to
// persist. It satisfies lobby.RoundSink.
type RoundQueue struct {
	rdb   redis.Cmdable
	queue string
}

func NewRoundQueue(rdb redis.Cmdable, queue string) *RoundQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RoundQueue{rdb: rdb, queue: queue}
}

// Name is the list the queue writes to.
func (q *RoundQueue) Name() string {
	return q.queue
}

// PublishRound serializes rec to JSON and pushes it to the tail of the queue.
func (q *RoundQueue) PublishRound(ctx context.Context, rec models.RoundRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// PopRound blocks up to timeout for the next record. It returns redis.Nil when
// the wait expires with nothing queued.
func (q *RoundQueue) PopRound(ctx context.Context, timeout time.Duration) (models.RoundRecord, error) {
	var rec models.RoundRecord
	res, err := q.rdb.BLPop(ctx, timeout, q.queue).Result()
	if err != nil {
		return rec, err
	}
	// BLPop returns [key, value].
	if len(res) != 2 {
		return rec, fmt.Errorf("unexpected BLPOP reply of length %d", len(res))
	}
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return rec, nil
}
