package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRoundTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisRoundTracker stores pending rounds as JSON with a TTL so that
// abandoned rounds do not pile up.
func NewRedisRoundTracker(rdb *redis.Client, ttl time.Duration) *RedisRoundTracker {
	return &RedisRoundTracker{rdb: rdb, ttl: ttl}
}

func (t *RedisRoundTracker) key(sessionID int64) string {
	return fmt.Sprintf("session:%d:round", sessionID)
}

func (t *RedisRoundTracker) Begin(ctx context.Context, p PendingRound) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return t.rdb.Set(ctx, t.key(p.SessionID), b, t.ttl).Err()
}

func (t *RedisRoundTracker) Pending(ctx context.Context, sessionID int64) (PendingRound, bool, error) {
	val, err := t.rdb.Get(ctx, t.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingRound{}, false, nil
	}
	if err != nil {
		return PendingRound{}, false, err
	}

	var p PendingRound
	if err := json.Unmarshal(val, &p); err != nil {
		return PendingRound{}, false, err
	}
	return p, true, nil
}

func (t *RedisRoundTracker) Clear(ctx context.Context, sessionID int64) error {
	return t.rdb.Del(ctx, t.key(sessionID)).Err()
}
