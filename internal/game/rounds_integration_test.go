//go:build integration

package game

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, rdb.Ping(ctx).Err(), "redis is not reachable")
	return rdb
}

func TestRedisRoundTracker_BeginPendingClear(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)
	require.NoError(t, rdb.FlushDB(ctx).Err())

	tr := NewRedisRoundTracker(rdb, time.Hour)
	deadline := time.Now().Add(30 * time.Second).Truncate(time.Millisecond)

	require.NoError(t, tr.Begin(ctx, PendingRound{SessionID: 42, CardID: 9, Deadline: deadline}))

	p, ok, err := tr.Pending(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(9), p.CardID)
	require.True(t, deadline.Equal(p.Deadline))

	ttl, err := rdb.TTL(ctx, "session:42:round").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, tr.Clear(ctx, 42))
	_, ok, err = tr.Pending(ctx, 42)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisRoundTracker_EngineTimeout(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)
	require.NoError(t, rdb.FlushDB(ctx).Err())

	clock := &fakeClock{t: time.Now()}
	cfg := Config{RoundDuration: time.Second}
	eng, st := newTestEngine(t, cfg, testCards(10), WithClock(clock.now), WithRoundTracker(NewRedisRoundTracker(rdb, time.Hour)))

	started, err := eng.StartSession(ctx, "u1")
	require.NoError(t, err)
	card, _, err := eng.DrawNextCard(ctx, started.Session.ID)
	require.NoError(t, err)

	clock.advance(2 * time.Second)
	res, err := eng.SubmitGuess(ctx, Guess{
		SessionID: started.Session.ID, UserID: "u1", CardID: card.ID,
		Position: rightPosition(t, st, started.Session.ID, card.ID),
	})
	require.NoError(t, err)
	require.True(t, res.TimedOut)
	require.False(t, res.IsCorrect)
}
