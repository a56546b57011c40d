package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Catalog is the read side of the card catalog.
type Catalog interface {
	Cards(ctx context.Context) ([]Card, error)
	// Card returns ErrCardNotFound when id is unknown.
	Card(ctx context.Context, id int64) (Card, error)
}

// SessionStore persists sessions and their entries.
type SessionStore interface {
	// CreateSession stores the session and its initial entries together.
	CreateSession(ctx context.Context, userID string, createdAt time.Time, initial []Card) (Session, error)
	// Session returns ErrNotFound when id is unknown.
	Session(ctx context.Context, id int64) (Session, error)
	// OngoingSession returns the newest ongoing session or ErrNotFound.
	OngoingSession(ctx context.Context, userID string) (Session, error)
	// SessionsByUser is ordered by creation time, newest first.
	SessionsByUser(ctx context.Context, userID string) ([]Session, error)
	Entries(ctx context.Context, sessionID int64) ([]Entry, error)
	// RecordRound appends e and sets the session status in one step.
	RecordRound(ctx context.Context, e Entry, status Status, outcome Outcome) error
	SetStatus(ctx context.Context, sessionID int64, status Status, outcome Outcome) error
}

type Config struct {
	RoundDuration time.Duration // 0 => no server-side deadline
	RoundGrace    time.Duration
}

type Engine struct {
	cfg      Config
	log      *slog.Logger
	catalog  Catalog
	sessions SessionStore
	rounds   RoundTracker
	events   Publisher

	now  func() time.Time
	intN func(n int) int
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.events = p }
}

func WithRoundTracker(t RoundTracker) Option {
	return func(e *Engine) { e.rounds = t }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand replaces the random source; intN must return a value in [0,n).
func WithRand(intN func(n int) int) Option {
	return func(e *Engine) { e.intN = intN }
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func NewEngine(cfg Config, catalog Catalog, sessions SessionStore, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		log:      slog.Default(),
		catalog:  catalog,
		sessions: sessions,
		rounds:   NewMemoryRoundTracker(),
		events:   nopPublisher{},
		now:      time.Now,
		intN:     rand.IntN,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// StartSession seeds a new session with three distinct cards sorted by score.
func (e *Engine) StartSession(ctx context.Context, userID string) (Started, error) {
	all, err := e.catalog.Cards(ctx)
	if err != nil {
		return Started{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if len(all) < InitialCards {
		return Started{}, fmt.Errorf("%w: only %d cards", ErrCatalogUnavailable, len(all))
	}

	initial := e.draw(all, InitialCards)
	SortByScore(initial)

	s, err := e.sessions.CreateSession(ctx, userID, e.now().UTC(), initial)
	if err != nil {
		return Started{}, fmt.Errorf("create session: %w", err)
	}

	e.log.Info("session started", "session", s.ID, "user", userID)
	e.events.Publish(userID, EventSessionStarted, SessionEvent{SessionID: s.ID, Status: s.Status})
	return Started{Session: s, InitialCards: initial}, nil
}

// CurrentSession returns the caller's ongoing session with its cards.
func (e *Engine) CurrentSession(ctx context.Context, userID string) (SessionDetail, error) {
	s, err := e.sessions.OngoingSession(ctx, userID)
	if err != nil {
		return SessionDetail{}, err
	}
	all, err := e.catalog.Cards(ctx)
	if err != nil {
		return SessionDetail{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return e.detail(ctx, s, indexCards(all))
}

// NextRound draws a card for the caller's ongoing session.
func (e *Engine) NextRound(ctx context.Context, userID string) (RoundCard, time.Time, error) {
	s, err := e.sessions.OngoingSession(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return RoundCard{}, time.Time{}, ErrNoOngoingSession
	}
	if err != nil {
		return RoundCard{}, time.Time{}, err
	}
	return e.DrawNextCard(ctx, s.ID)
}

// DrawNextCard picks, uniformly, a catalog card not yet used in the session.
// The returned card never carries its score.
func (e *Engine) DrawNextCard(ctx context.Context, sessionID int64) (RoundCard, time.Time, error) {
	s, err := e.sessions.Session(ctx, sessionID)
	if err != nil {
		return RoundCard{}, time.Time{}, err
	}
	if s.Status != StatusOngoing {
		return RoundCard{}, time.Time{}, ErrAlreadyCompleted
	}

	entries, err := e.sessions.Entries(ctx, sessionID)
	if err != nil {
		return RoundCard{}, time.Time{}, fmt.Errorf("load entries: %w", err)
	}
	all, err := e.catalog.Cards(ctx)
	if err != nil {
		return RoundCard{}, time.Time{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	used := make(map[int64]bool, len(entries))
	for _, en := range entries {
		used[en.CardID] = true
	}
	available := make([]Card, 0, len(all))
	for _, c := range all {
		if !used[c.ID] {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return RoundCard{}, time.Time{}, ErrNoCardsAvailable
	}

	card := available[e.intN(len(available))]

	var deadline time.Time
	if e.cfg.RoundDuration > 0 {
		deadline = e.now().Add(e.cfg.RoundDuration)
	}
	if err := e.rounds.Begin(ctx, PendingRound{SessionID: sessionID, CardID: card.ID, Deadline: deadline}); err != nil {
		return RoundCard{}, time.Time{}, fmt.Errorf("track round: %w", err)
	}

	e.events.Publish(s.UserID, EventRoundStarted, RoundStartedEvent{
		SessionID:  sessionID,
		CardID:     card.ID,
		Name:       card.Name,
		ImageRef:   card.ImageRef,
		DeadlineMs: toMs(deadline),
	})
	return card.Reduced(), deadline, nil
}

// SubmitGuess validates one placement, records it and applies the termination rule.
func (e *Engine) SubmitGuess(ctx context.Context, g Guess) (GuessResult, error) {
	s, err := e.owned(ctx, g.SessionID, g.UserID)
	if err != nil {
		return GuessResult{}, err
	}
	if s.Status != StatusOngoing {
		return GuessResult{}, ErrAlreadyCompleted
	}

	entries, err := e.sessions.Entries(ctx, s.ID)
	if err != nil {
		return GuessResult{}, fmt.Errorf("load entries: %w", err)
	}
	all, err := e.catalog.Cards(ctx)
	if err != nil {
		return GuessResult{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	byID := indexCards(all)

	owned := make([]Card, 0, len(entries))
	played := 0
	for _, en := range entries {
		if en.CardID == g.CardID {
			return GuessResult{}, ErrCardAlreadyPlayed
		}
		if !en.Initial {
			played++
		}
		if en.Won {
			c, ok := byID[en.CardID]
			if !ok {
				return GuessResult{}, fmt.Errorf("owned card %d missing from catalog", en.CardID)
			}
			owned = append(owned, c)
		}
	}
	SortByScore(owned)

	guess, ok := byID[g.CardID]
	if !ok {
		return GuessResult{}, ErrCardNotFound
	}

	timedOut := g.TimedOut
	if !timedOut {
		expired, err := e.expired(ctx, s.ID, g.CardID)
		if err != nil {
			return GuessResult{}, err
		}
		timedOut = expired
	}

	correct, correctIndex := Judge(owned, guess, g.Position, timedOut)

	entry := Entry{
		SessionID:   s.ID,
		CardID:      guess.ID,
		RoundNumber: played + 1,
		Won:         correct,
		Initial:     false,
	}
	wins, losses := Tally(append(entries, entry))
	status, outcome := Decide(wins, losses)

	if err := e.sessions.RecordRound(ctx, entry, status, outcome); err != nil {
		return GuessResult{}, fmt.Errorf("record round: %w", err)
	}
	if err := e.rounds.Clear(ctx, s.ID); err != nil {
		e.log.Warn("clear pending round", "session", s.ID, "err", err)
	}

	res := GuessResult{
		IsCorrect:    correct,
		CorrectIndex: correctIndex,
		Status:       status,
		Outcome:      outcome,
		TimedOut:     timedOut,
		RoundNumber:  entry.RoundNumber,
		Wins:         wins,
		Losses:       losses,
	}
	if correct {
		res.GuessCard = &guess
	}

	e.events.Publish(s.UserID, EventGuessResult, GuessResultEvent{
		SessionID:   s.ID,
		RoundNumber: res.RoundNumber,
		IsCorrect:   res.IsCorrect,
		TimedOut:    res.TimedOut,
		Wins:        wins,
		Losses:      losses,
		Status:      status,
		Outcome:     outcome,
	})
	if status == StatusCompleted {
		e.log.Info("session completed", "session", s.ID, "outcome", outcome, "wins", wins, "losses", losses)
		e.events.Publish(s.UserID, EventSessionCompleted, SessionEvent{SessionID: s.ID, Status: status, Outcome: outcome})
	}
	return res, nil
}

// ForceComplete persists a terminal state the client observed locally.
// The recorded rounds are authoritative: the claimed outcome is accepted only
// when it equals what the entries already imply.
func (e *Engine) ForceComplete(ctx context.Context, sessionID int64, userID string, claimed Outcome) (Session, error) {
	s, err := e.owned(ctx, sessionID, userID)
	if err != nil {
		return Session{}, err
	}
	if s.Status != StatusOngoing {
		// repeating the recorded verdict is a no-op
		if s.Outcome == claimed {
			return s, nil
		}
		return Session{}, ErrAlreadyCompleted
	}

	entries, err := e.sessions.Entries(ctx, s.ID)
	if err != nil {
		return Session{}, fmt.Errorf("load entries: %w", err)
	}
	status, outcome := Decide(Tally(entries))
	if status != StatusCompleted || outcome != claimed {
		e.log.Warn("forced completion rejected", "session", s.ID, "claimed", claimed, "derived", outcome)
		return Session{}, ErrOutcomeMismatch
	}

	if err := e.sessions.SetStatus(ctx, s.ID, status, outcome); err != nil {
		return Session{}, fmt.Errorf("set status: %w", err)
	}
	if err := e.rounds.Clear(ctx, s.ID); err != nil {
		e.log.Warn("clear pending round", "session", s.ID, "err", err)
	}

	s.Status, s.Outcome = status, outcome
	e.events.Publish(s.UserID, EventSessionCompleted, SessionEvent{SessionID: s.ID, Status: status, Outcome: outcome})
	return s, nil
}

func (e *Engine) owned(ctx context.Context, sessionID int64, userID string) (Session, error) {
	s, err := e.sessions.Session(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if userID == "" || s.UserID != userID {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// expired reports whether cardID is the pending card and its deadline,
// plus grace, has passed.
func (e *Engine) expired(ctx context.Context, sessionID, cardID int64) (bool, error) {
	p, ok, err := e.rounds.Pending(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("pending round: %w", err)
	}
	if !ok || p.CardID != cardID || p.Deadline.IsZero() {
		return false, nil
	}
	return e.now().After(p.Deadline.Add(e.cfg.RoundGrace)), nil
}

func (e *Engine) detail(ctx context.Context, s Session, byID map[int64]Card) (SessionDetail, error) {
	entries, err := e.sessions.Entries(ctx, s.ID)
	if err != nil {
		return SessionDetail{}, fmt.Errorf("load entries: %w", err)
	}
	cards := make([]SessionCard, 0, len(entries))
	for _, en := range entries {
		c, ok := byID[en.CardID]
		if !ok {
			return SessionDetail{}, fmt.Errorf("card %d missing from catalog", en.CardID)
		}
		cards = append(cards, SessionCard{Entry: en, Card: c})
	}
	OrderEntries(cards)
	return SessionDetail{Session: s, Cards: cards}, nil
}

// draw picks n distinct cards (partial Fisher-Yates on a copy).
func (e *Engine) draw(all []Card, n int) []Card {
	pool := append([]Card(nil), all...)
	for i := 0; i < n; i++ {
		j := i + e.intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n:n]
}

func indexCards(all []Card) map[int64]Card {
	m := make(map[int64]Card, len(all))
	for _, c := range all {
		m[c.ID] = c
	}
	return m
}

func toMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
