package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"example.com/stuff-happens/internal/api"
	"example.com/stuff-happens/internal/game"
)

var (
	ErrNoRound    = errors.New("no round in progress")
	ErrRoundSpent = errors.New("round already answered")
	ErrGameOver   = errors.New("game is over")
	ErrStale      = errors.New("response belongs to a round that has moved on")
)

// Backend is the part of the server API the Synchronizer drives.
type Backend interface {
	StartSession(ctx context.Context) (api.StartSessionResponse, error)
	NextRound(ctx context.Context) (api.RoundCard, error)
	Guess(ctx context.Context, req api.GuessRequest) (api.GuessResponse, error)
	ForceComplete(ctx context.Context, sessionID int64, outcome string) (api.Session, error)
	StartDemo(ctx context.Context) (api.DemoStartResponse, error)
	GuessDemo(ctx context.Context, req api.DemoGuessRequest) (api.DemoGuessResponse, error)
}

type Mode string

const (
	ModeSession Mode = "session"
	ModeDemo    Mode = "demo"
)

// TrailCard is one played round as shown to the player, won or lost.
type TrailCard struct {
	Card     game.RoundCard
	Round    int
	Won      bool
	TimedOut bool
}

// Result is what the player learns after a round resolves.
type Result struct {
	IsCorrect    bool
	CorrectIndex int
	GuessCard    *game.Card
	TimedOut     bool
	Status       game.Status
	Outcome      game.Outcome
}

// State is a snapshot of the local mirror.
type State struct {
	Mode      Mode
	SessionID int64
	Owned     []game.Card // ascending by score
	Trail     []TrailCard
	Round     *game.RoundCard
	Deadline  time.Time
	Remaining int
	Wins      int
	Losses    int
	Status    game.Status
	Outcome   game.Outcome
	Over      bool
	Last      *Result
	Err       error
}

type SyncOption func(*Synchronizer)

func WithTimer(t Timer) SyncOption {
	return func(s *Synchronizer) { s.timer = t }
}

// OnChange is called with a fresh snapshot after every state change.
func OnChange(fn func(State)) SyncOption {
	return func(s *Synchronizer) { s.onChange = fn }
}

func WithSyncLogger(log *slog.Logger) SyncOption {
	return func(s *Synchronizer) { s.log = log }
}

// Synchronizer mirrors one game on the client: owned cards, the pending
// round, the countdown and the counters. The termination rule is the
// engine's own game.Decide.
type Synchronizer struct {
	backend  Backend
	timer    Timer
	onChange func(State)
	log      *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	seq        uint64
	roundSpent bool
	inflight   chan struct{} // closed when the submitted guess resolves
	closed     bool
	st         State
}

func NewSynchronizer(b Backend, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		backend: b,
		timer:   NewCountdown(30, time.Second, 100*time.Millisecond),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Start begins a new persisted session.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.timer.Cancel()
	resp, err := s.backend.StartSession(ctx)
	if err != nil {
		return err
	}

	owned := toGameCards(resp.InitialCards)
	game.SortByScore(owned)

	s.mu.Lock()
	s.ctx = ctx
	s.seq++
	s.roundSpent = false
	s.st = State{
		Mode:      ModeSession,
		SessionID: resp.SessionID,
		Owned:     owned,
		Status:    game.StatusOngoing,
		Remaining: s.timer.Remaining(),
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// StartDemo deals a single anonymous round and starts its countdown.
func (s *Synchronizer) StartDemo(ctx context.Context) error {
	s.timer.Cancel()
	resp, err := s.backend.StartDemo(ctx)
	if err != nil {
		return err
	}

	owned := toGameCards(resp.InitialCards)
	game.SortByScore(owned)
	round := resp.GuessCard.Game()

	s.mu.Lock()
	s.ctx = ctx
	s.seq++
	s.roundSpent = false
	s.st = State{
		Mode:   ModeDemo,
		Owned:  owned,
		Round:  &round,
		Status: game.StatusOngoing,
	}
	s.mu.Unlock()

	s.startTimer()
	return nil
}

// Settle blocks until the guess in flight, if any, has been folded into the
// mirror.
func (s *Synchronizer) Settle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleLocked(ctx)
}

func (s *Synchronizer) settleLocked(ctx context.Context) error {
	for s.inflight != nil {
		wait := s.inflight
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			s.mu.Lock()
			return ctx.Err()
		}
		s.mu.Lock()
	}
	return nil
}

// NextRound waits for an unresolved guess, then fetches a new card and
// resets the countdown. A card response that arrives after another round
// was requested is discarded.
func (s *Synchronizer) NextRound(ctx context.Context) (game.RoundCard, error) {
	s.mu.Lock()
	if err := s.settleLocked(ctx); err != nil {
		s.mu.Unlock()
		return game.RoundCard{}, err
	}
	if s.st.Over {
		s.mu.Unlock()
		return game.RoundCard{}, ErrGameOver
	}
	if s.st.Mode != ModeSession {
		s.mu.Unlock()
		return game.RoundCard{}, ErrNoRound
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.timer.Cancel()
	rc, err := s.backend.NextRound(ctx)
	if err != nil {
		return game.RoundCard{}, err
	}

	round := rc.Game()
	s.mu.Lock()
	if seq != s.seq || s.closed {
		s.mu.Unlock()
		return game.RoundCard{}, ErrStale
	}
	s.st.Round = &round
	s.st.Deadline = rc.Deadline()
	s.st.Last = nil
	s.st.Err = nil
	s.roundSpent = false
	s.mu.Unlock()

	s.startTimer()
	return round, nil
}

// Submit places the pending card at position. Only the first submission of
// a round, manual or automatic, reaches the server. A response is dropped
// with ErrStale only when the session was replaced or the Synchronizer
// closed while it was in flight.
func (s *Synchronizer) Submit(ctx context.Context, position int) (Result, error) {
	return s.submit(ctx, position, false)
}

func (s *Synchronizer) submit(ctx context.Context, position int, timedOut bool) (Result, error) {
	s.mu.Lock()
	if s.st.Over {
		s.mu.Unlock()
		return Result{}, ErrGameOver
	}
	if s.st.Round == nil {
		s.mu.Unlock()
		return Result{}, ErrNoRound
	}
	if s.roundSpent {
		s.mu.Unlock()
		return Result{}, ErrRoundSpent
	}
	s.roundSpent = true
	done := make(chan struct{})
	s.inflight = done
	seq := s.seq
	round := *s.st.Round
	mode := s.st.Mode
	sessionID := s.st.SessionID
	owned := slices.Clone(s.st.Owned)
	s.mu.Unlock()
	defer s.resolve(done)

	s.timer.Cancel()

	var (
		res    Result
		wins   int
		losses int
		err    error
	)
	switch mode {
	case ModeDemo:
		res, err = s.guessDemo(ctx, owned, round.ID, position, timedOut)
	default:
		res, wins, losses, err = s.guessSession(ctx, sessionID, round.ID, position, timedOut)
	}
	if err != nil {
		s.mu.Lock()
		if seq == s.seq {
			s.st.Err = err
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return Result{}, err
	}

	s.mu.Lock()
	if seq != s.seq || s.closed {
		s.mu.Unlock()
		s.log.Debug("discarding stale guess response", "card", round.ID)
		return Result{}, ErrStale
	}
	force := s.applyLocked(round, res, wins, losses)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if force != game.OutcomeNone {
		s.forceComplete(ctx, seq, sessionID, force)
		snap = s.State()
	}
	s.notify(snap)
	return res, nil
}

func (s *Synchronizer) resolve(done chan struct{}) {
	s.mu.Lock()
	if s.inflight == done {
		s.inflight = nil
	}
	s.mu.Unlock()
	close(done)
}

func (s *Synchronizer) guessSession(ctx context.Context, sessionID, cardID int64, position int, timedOut bool) (Result, int, int, error) {
	resp, err := s.backend.Guess(ctx, api.GuessRequest{
		SessionID:   &sessionID,
		GuessCardID: &cardID,
		Position:    &position,
		TimedOut:    &timedOut,
	})
	if err != nil {
		return Result{}, 0, 0, err
	}
	res := Result{
		IsCorrect:    resp.IsCorrect,
		CorrectIndex: resp.CorrectIndex,
		TimedOut:     resp.TimedOut,
		Status:       game.Status(resp.Status),
		Outcome:      api.ToOutcome(resp.Outcome),
	}
	if resp.GuessCard != nil {
		c := resp.GuessCard.Game()
		res.GuessCard = &c
	}
	return res, resp.Wins, resp.Losses, nil
}

func (s *Synchronizer) guessDemo(ctx context.Context, owned []game.Card, cardID int64, position int, timedOut bool) (Result, error) {
	resp, err := s.backend.GuessDemo(ctx, api.DemoGuessRequest{
		InitialCards: api.FromCards(owned),
		GuessCardID:  &cardID,
		Position:     &position,
		TimedOut:     &timedOut,
	})
	if err != nil {
		return Result{}, err
	}
	res := Result{
		IsCorrect:    resp.IsCorrect,
		CorrectIndex: resp.CorrectIndex,
		TimedOut:     resp.TimedOut,
		Status:       game.StatusCompleted,
		Outcome:      api.ToOutcome(resp.Outcome),
	}
	if resp.GuessCard != nil {
		c := resp.GuessCard.Game()
		res.GuessCard = &c
	}
	return res, nil
}

// applyLocked folds a result into the mirror. It returns the outcome to
// force when the local rule says the game is over but the server has not
// recorded it.
func (s *Synchronizer) applyLocked(round game.RoundCard, res Result, wins, losses int) game.Outcome {
	st := &s.st
	if res.IsCorrect && res.GuessCard != nil {
		st.Owned = game.InsertSorted(st.Owned, *res.GuessCard)
	}
	st.Trail = append(st.Trail, TrailCard{
		Card:     round,
		Round:    len(st.Trail) + 1,
		Won:      res.IsCorrect,
		TimedOut: res.TimedOut,
	})
	st.Round = nil
	st.Deadline = time.Time{}
	st.Last = &res
	st.Err = nil

	if st.Mode == ModeDemo {
		st.Status, st.Outcome, st.Over = game.StatusCompleted, res.Outcome, true
		return game.OutcomeNone
	}

	// optimistic local count, replaced by the server's when it sent one
	if res.IsCorrect {
		st.Wins++
	} else {
		st.Losses++
	}
	if wins+losses > 0 {
		st.Wins, st.Losses = wins, losses
	}

	status, outcome := game.Decide(st.Wins, st.Losses)
	if res.Status == game.StatusCompleted {
		st.Status, st.Outcome, st.Over = res.Status, res.Outcome, true
		return game.OutcomeNone
	}
	st.Status, st.Outcome = status, outcome
	st.Over = status == game.StatusCompleted
	if st.Over {
		return outcome
	}
	return game.OutcomeNone
}

func (s *Synchronizer) forceComplete(ctx context.Context, seq uint64, sessionID int64, outcome game.Outcome) {
	sess, err := s.backend.ForceComplete(ctx, sessionID, string(outcome))

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return
	}
	if err != nil {
		s.log.Warn("forced completion failed", "session", sessionID, "outcome", outcome, "err", err)
		s.st.Err = fmt.Errorf("force complete: %w", err)
		return
	}
	s.st.Status = game.Status(sess.Status)
	s.st.Outcome = api.ToOutcome(sess.Outcome)
}

func (s *Synchronizer) startTimer() {
	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()

	s.timer.Start(func(rem int) {
		s.mu.Lock()
		if seq != s.seq || s.closed {
			s.mu.Unlock()
			return
		}
		s.st.Remaining = rem
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
	}, func() {
		s.mu.Lock()
		ctx := s.ctx
		stale := seq != s.seq || s.closed
		s.mu.Unlock()
		if stale {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		if _, err := s.submit(ctx, 0, true); err != nil && !errors.Is(err, ErrRoundSpent) {
			s.log.Warn("timeout submission failed", "err", err)
		}
	})

	s.mu.Lock()
	s.st.Remaining = s.timer.Remaining()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Close stops the countdown; late callbacks and responses are ignored.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.timer.Cancel()
}

func (s *Synchronizer) notify(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

func (s *Synchronizer) snapshotLocked() State {
	st := s.st
	st.Owned = slices.Clone(s.st.Owned)
	st.Trail = slices.Clone(s.st.Trail)
	if s.st.Round != nil {
		r := *s.st.Round
		st.Round = &r
	}
	return st
}

func toGameCards(cs []api.Card) []game.Card {
	out := make([]game.Card, len(cs))
	for i, c := range cs {
		out[i] = c.Game()
	}
	return out
}
