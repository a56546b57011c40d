package game

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps the catalog, sessions and entries in process.
type MemoryStore struct {
	mu       sync.Mutex
	cards    map[int64]Card
	sessions map[int64]Session
	entries  map[int64][]Entry
	nextID   int64
}

func NewMemoryStore(cards ...Card) *MemoryStore {
	s := &MemoryStore{
		cards:    make(map[int64]Card),
		sessions: make(map[int64]Session),
		entries:  make(map[int64][]Entry),
	}
	_ = s.UpsertCards(context.Background(), cards)
	return s
}

func (s *MemoryStore) UpsertCards(_ context.Context, cards []Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cards {
		s.cards[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) Cards(_ context.Context) ([]Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Card) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *MemoryStore) Card(_ context.Context, id int64) (Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return Card{}, ErrCardNotFound
	}
	return c, nil
}

func (s *MemoryStore) CreateSession(_ context.Context, userID string, createdAt time.Time, initial []Card) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sess := Session{
		ID:        s.nextID,
		UserID:    userID,
		Status:    StatusOngoing,
		CreatedAt: createdAt,
	}
	s.sessions[sess.ID] = sess
	for _, c := range initial {
		s.entries[sess.ID] = append(s.entries[sess.ID], Entry{
			SessionID: sess.ID,
			CardID:    c.ID,
			Won:       true,
			Initial:   true,
		})
	}
	return sess, nil
}

func (s *MemoryStore) Session(_ context.Context, id int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) OngoingSession(ctx context.Context, userID string) (Session, error) {
	all, err := s.SessionsByUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	for _, sess := range all {
		if sess.Status == StatusOngoing {
			return sess, nil
		}
	}
	return Session{}, ErrNotFound
}

func (s *MemoryStore) SessionsByUser(_ context.Context, userID string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	slices.SortFunc(out, func(a, b Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}

func (s *MemoryStore) Entries(_ context.Context, sessionID int64) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries[sessionID]), nil
}

func (s *MemoryStore) RecordRound(_ context.Context, e Entry, status Status, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[e.SessionID]
	if !ok {
		return ErrNotFound
	}
	for _, x := range s.entries[e.SessionID] {
		if x.CardID == e.CardID {
			return fmt.Errorf("card %d already in session %d", e.CardID, e.SessionID)
		}
	}
	s.entries[e.SessionID] = append(s.entries[e.SessionID], e)
	sess.Status, sess.Outcome = status, outcome
	s.sessions[e.SessionID] = sess
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, sessionID int64, status Status, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.Status, sess.Outcome = status, outcome
	s.sessions[sessionID] = sess
	return nil
}
