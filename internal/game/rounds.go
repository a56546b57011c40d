package game

import (
	"context"
	"sync"
	"time"
)

// PendingRound is the card served for the current round and when it expires.
type PendingRound struct {
	SessionID int64     `json:"sessionId"`
	CardID    int64     `json:"cardId"`
	Deadline  time.Time `json:"deadline"`
}

// RoundTracker remembers the served card per session so the server can
// enforce the round timeout on its own clock.
type RoundTracker interface {
	Begin(ctx context.Context, p PendingRound) error
	Pending(ctx context.Context, sessionID int64) (PendingRound, bool, error)
	Clear(ctx context.Context, sessionID int64) error
}

type MemoryRoundTracker struct {
	mu sync.Mutex
	m  map[int64]PendingRound
}

func NewMemoryRoundTracker() *MemoryRoundTracker {
	return &MemoryRoundTracker{
		m: make(map[int64]PendingRound),
	}
}

func (t *MemoryRoundTracker) Begin(_ context.Context, p PendingRound) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[p.SessionID] = p
	return nil
}

func (t *MemoryRoundTracker) Pending(_ context.Context, sessionID int64) (PendingRound, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.m[sessionID]
	return p, ok, nil
}

func (t *MemoryRoundTracker) Clear(_ context.Context, sessionID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, sessionID)
	return nil
}
