package game

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCards returns n cards whose scores do not follow id order.
func testCards(n int) []Card {
	out := make([]Card, n)
	for i := range out {
		id := int64(i + 1)
		out[i] = Card{
			ID:       id,
			Name:     "card",
			ImageRef: "/assets/card.png",
			Score:    float64((id*7)%int64(n+1)) + 0.5,
			Theme:    "university life",
		}
	}
	return out
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func firstPick(int) int { return 0 }

func newTestEngine(t *testing.T, cfg Config, cards []Card, opts ...Option) (*Engine, *MemoryStore) {
	t.Helper()
	st := NewMemoryStore(cards...)
	opts = append([]Option{WithRand(firstPick)}, opts...)
	return NewEngine(cfg, st, st, opts...), st
}

// rightPosition computes the answer from stored entries.
func rightPosition(t *testing.T, st *MemoryStore, sessionID, cardID int64) int {
	t.Helper()
	ctx := context.Background()
	entries, err := st.Entries(ctx, sessionID)
	require.NoError(t, err)
	guess, err := st.Card(ctx, cardID)
	require.NoError(t, err)

	pos := 0
	for _, e := range entries {
		if !e.Won {
			continue
		}
		c, err := st.Card(ctx, e.CardID)
		require.NoError(t, err)
		if c.Score < guess.Score {
			pos++
		}
	}
	return pos
}

func wrongPosition(right int) int {
	if right == 0 {
		return 1
	}
	return 0
}

func TestEngine_StartSession(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t, Config{}, testCards(10))

	started, err := eng.StartSession(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, StatusOngoing, started.Session.Status)
	assert.Equal(t, OutcomeNone, started.Session.Outcome)
	require.Len(t, started.InitialCards, InitialCards)
	for i := 1; i < len(started.InitialCards); i++ {
		assert.Less(t, started.InitialCards[i-1].Score, started.InitialCards[i].Score)
	}

	entries, err := st.Entries(ctx, started.Session.ID)
	require.NoError(t, err)
	require.Len(t, entries, InitialCards)
	seen := map[int64]bool{}
	for _, e := range entries {
		assert.True(t, e.Initial)
		assert.True(t, e.Won)
		assert.Zero(t, e.RoundNumber)
		assert.False(t, seen[e.CardID], "duplicate initial card")
		seen[e.CardID] = true
	}
}

func TestEngine_StartSession_CatalogTooSmall(t *testing.T) {
	eng, _ := newTestEngine(t, Config{}, testCards(2))
	_, err := eng.StartSession(context.Background(), "u1")
	require.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestEngine_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "three correct guesses win with rounds 1..3",
			run: func(t *testing.T) {
				ctx := context.Background()
				eng, st := newTestEngine(t, Config{}, testCards(10))
				started, err := eng.StartSession(ctx, "u1")
				require.NoError(t, err)
				sid := started.Session.ID

				for round := 1; round <= 3; round++ {
					card, _, err := eng.NextRound(ctx, "u1")
					require.NoError(t, err)

					pos := rightPosition(t, st, sid, card.ID)
					res, err := eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, Position: pos})
					require.NoError(t, err)

					assert.True(t, res.IsCorrect)
					assert.Equal(t, pos, res.CorrectIndex)
					require.NotNil(t, res.GuessCard)
					assert.Equal(t, card.ID, res.GuessCard.ID)
					assert.Equal(t, round, res.RoundNumber)
					assert.Equal(t, round, res.Wins)

					if round < 3 {
						assert.Equal(t, StatusOngoing, res.Status)
					} else {
						assert.Equal(t, StatusCompleted, res.Status)
						assert.Equal(t, OutcomeWon, res.Outcome)
					}
				}

				s, err := st.Session(ctx, sid)
				require.NoError(t, err)
				assert.Equal(t, StatusCompleted, s.Status)
				assert.Equal(t, OutcomeWon, s.Outcome)

				entries, err := st.Entries(ctx, sid)
				require.NoError(t, err)
				var rounds []int
				owned := 0
				for _, e := range entries {
					if !e.Initial {
						rounds = append(rounds, e.RoundNumber)
					}
					if e.Won {
						owned++
					}
				}
				assert.Equal(t, []int{1, 2, 3}, rounds)
				assert.Equal(t, 6, owned)
			},
		},
		{
			name: "three wrong guesses lose and hide the card",
			run: func(t *testing.T) {
				ctx := context.Background()
				eng, st := newTestEngine(t, Config{}, testCards(10))
				started, err := eng.StartSession(ctx, "u1")
				require.NoError(t, err)
				sid := started.Session.ID

				var last GuessResult
				for i := 0; i < 3; i++ {
					card, _, err := eng.DrawNextCard(ctx, sid)
					require.NoError(t, err)
					right := rightPosition(t, st, sid, card.ID)
					last, err = eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, Position: wrongPosition(right)})
					require.NoError(t, err)
					assert.False(t, last.IsCorrect)
					assert.Nil(t, last.GuessCard)
					assert.Equal(t, right, last.CorrectIndex)
				}
				assert.Equal(t, StatusCompleted, last.Status)
				assert.Equal(t, OutcomeLost, last.Outcome)
				assert.Equal(t, 3, last.Losses)
				assert.Equal(t, 0, last.Wins)
			},
		},
		{
			name: "timeout loses even at the right position",
			run: func(t *testing.T) {
				ctx := context.Background()
				eng, st := newTestEngine(t, Config{}, testCards(10))
				started, err := eng.StartSession(ctx, "u1")
				require.NoError(t, err)
				sid := started.Session.ID

				card, _, err := eng.DrawNextCard(ctx, sid)
				require.NoError(t, err)
				pos := rightPosition(t, st, sid, card.ID)

				res, err := eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, Position: pos, TimedOut: true})
				require.NoError(t, err)
				assert.False(t, res.IsCorrect)
				assert.True(t, res.TimedOut)
				assert.Equal(t, pos, res.CorrectIndex)
				assert.Equal(t, 1, res.Losses)

				entries, err := st.Entries(ctx, sid)
				require.NoError(t, err)
				wins, _ := Tally(entries)
				assert.Zero(t, wins)
			},
		},
		{
			name: "completed session rejects guesses without new entries",
			run: func(t *testing.T) {
				ctx := context.Background()
				eng, st := newTestEngine(t, Config{}, testCards(10))
				started, err := eng.StartSession(ctx, "u1")
				require.NoError(t, err)
				sid := started.Session.ID

				for i := 0; i < 3; i++ {
					card, _, err := eng.DrawNextCard(ctx, sid)
					require.NoError(t, err)
					_, err = eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, TimedOut: true})
					require.NoError(t, err)
				}
				before, err := st.Entries(ctx, sid)
				require.NoError(t, err)

				_, err = eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: 10, Position: 0})
				require.ErrorIs(t, err, ErrAlreadyCompleted)

				_, _, err = eng.DrawNextCard(ctx, sid)
				require.ErrorIs(t, err, ErrAlreadyCompleted)

				after, err := st.Entries(ctx, sid)
				require.NoError(t, err)
				assert.Equal(t, before, after)
			},
		},
		{
			name: "foreign and missing sessions collapse to not found",
			run: func(t *testing.T) {
				ctx := context.Background()
				eng, _ := newTestEngine(t, Config{}, testCards(10))
				started, err := eng.StartSession(ctx, "u1")
				require.NoError(t, err)

				_, err = eng.SubmitGuess(ctx, Guess{SessionID: started.Session.ID, UserID: "u2", CardID: 5})
				require.ErrorIs(t, err, ErrNotFound)

				_, err = eng.SubmitGuess(ctx, Guess{SessionID: 999, UserID: "u1", CardID: 5})
				require.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name: "unknown and replayed cards are rejected",
			run: func(t *testing.T) {
				ctx := context.Background()
				eng, _ := newTestEngine(t, Config{}, testCards(10))
				started, err := eng.StartSession(ctx, "u1")
				require.NoError(t, err)
				sid := started.Session.ID

				_, err = eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: 404})
				require.ErrorIs(t, err, ErrCardNotFound)

				_, err = eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: started.InitialCards[0].ID})
				require.ErrorIs(t, err, ErrCardAlreadyPlayed)
			},
		},
		{
			name: "draw never repeats and exhausts the catalog",
			run: func(t *testing.T) {
				ctx := context.Background()
				eng, st := newTestEngine(t, Config{}, testCards(5))
				started, err := eng.StartSession(ctx, "u1")
				require.NoError(t, err)
				sid := started.Session.ID

				for i := 0; i < 2; i++ {
					card, _, err := eng.DrawNextCard(ctx, sid)
					require.NoError(t, err)

					entries, err := st.Entries(ctx, sid)
					require.NoError(t, err)
					for _, e := range entries {
						assert.NotEqual(t, e.CardID, card.ID)
					}
					_, err = eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, TimedOut: true})
					require.NoError(t, err)
				}

				_, _, err = eng.DrawNextCard(ctx, sid)
				require.ErrorIs(t, err, ErrNoCardsAvailable)
			},
		},
		{
			name: "next round without ongoing session",
			run: func(t *testing.T) {
				eng, _ := newTestEngine(t, Config{}, testCards(10))
				_, _, err := eng.NextRound(context.Background(), "nobody")
				require.ErrorIs(t, err, ErrNoOngoingSession)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

func TestEngine_ServerDeadline(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	cfg := Config{RoundDuration: 30 * time.Second, RoundGrace: 2 * time.Second}
	eng, st := newTestEngine(t, cfg, testCards(10), WithClock(clock.now))

	started, err := eng.StartSession(ctx, "u1")
	require.NoError(t, err)
	sid := started.Session.ID

	t.Run("within grace is scored normally", func(t *testing.T) {
		card, deadline, err := eng.DrawNextCard(ctx, sid)
		require.NoError(t, err)
		assert.Equal(t, clock.t.Add(30*time.Second), deadline)

		clock.advance(31 * time.Second)
		pos := rightPosition(t, st, sid, card.ID)
		res, err := eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, Position: pos})
		require.NoError(t, err)
		assert.True(t, res.IsCorrect)
		assert.False(t, res.TimedOut)
	})

	t.Run("after deadline and grace is a timeout", func(t *testing.T) {
		card, _, err := eng.DrawNextCard(ctx, sid)
		require.NoError(t, err)

		clock.advance(33 * time.Second)
		pos := rightPosition(t, st, sid, card.ID)
		res, err := eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, Position: pos})
		require.NoError(t, err)
		assert.False(t, res.IsCorrect)
		assert.True(t, res.TimedOut)
		assert.Equal(t, pos, res.CorrectIndex)
	})
}

type clearFails struct{ *MemoryRoundTracker }

func (clearFails) Clear(context.Context, int64) error { return errors.New("tracker down") }

func TestEngine_ForceComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("premature outcome is rejected", func(t *testing.T) {
		eng, st := newTestEngine(t, Config{}, testCards(10))
		started, err := eng.StartSession(ctx, "u1")
		require.NoError(t, err)

		_, err = eng.ForceComplete(ctx, started.Session.ID, "u1", OutcomeWon)
		require.ErrorIs(t, err, ErrOutcomeMismatch)

		s, err := st.Session(ctx, started.Session.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusOngoing, s.Status)
	})

	t.Run("outcome implied by entries is persisted", func(t *testing.T) {
		eng, st := newTestEngine(t, Config{}, testCards(10))
		started, err := eng.StartSession(ctx, "u1")
		require.NoError(t, err)
		sid := started.Session.ID

		// rounds recorded but the status update never landed
		for i, id := range []int64{7, 8, 9} {
			require.NoError(t, st.RecordRound(ctx, Entry{SessionID: sid, CardID: id, RoundNumber: i + 1}, StatusOngoing, OutcomeNone))
		}

		_, err = eng.ForceComplete(ctx, sid, "u1", OutcomeWon)
		require.ErrorIs(t, err, ErrOutcomeMismatch)

		s, err := eng.ForceComplete(ctx, sid, "u1", OutcomeLost)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, s.Status)
		assert.Equal(t, OutcomeLost, s.Outcome)

		again, err := eng.ForceComplete(ctx, sid, "u1", OutcomeLost)
		require.NoError(t, err)
		assert.Equal(t, s, again)

		_, err = eng.ForceComplete(ctx, sid, "u1", OutcomeWon)
		require.ErrorIs(t, err, ErrAlreadyCompleted)
	})

	t.Run("session closed by a guess accepts the same verdict", func(t *testing.T) {
		eng, _ := newTestEngine(t, Config{}, testCards(10))
		started, err := eng.StartSession(ctx, "u1")
		require.NoError(t, err)
		sid := started.Session.ID

		for range 3 {
			card, _, err := eng.DrawNextCard(ctx, sid)
			require.NoError(t, err)
			_, err = eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, TimedOut: true})
			require.NoError(t, err)
		}

		s, err := eng.ForceComplete(ctx, sid, "u1", OutcomeLost)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, s.Status)
		assert.Equal(t, OutcomeLost, s.Outcome)

		_, err = eng.ForceComplete(ctx, sid, "u1", OutcomeWon)
		require.ErrorIs(t, err, ErrAlreadyCompleted)
	})

	t.Run("tracker failure is logged, not returned", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))
		eng, st := newTestEngine(t, Config{}, testCards(10),
			WithRoundTracker(clearFails{NewMemoryRoundTracker()}), WithLogger(log))
		started, err := eng.StartSession(ctx, "u1")
		require.NoError(t, err)
		sid := started.Session.ID
		for i, id := range []int64{7, 8, 9} {
			require.NoError(t, st.RecordRound(ctx, Entry{SessionID: sid, CardID: id, RoundNumber: i + 1}, StatusOngoing, OutcomeNone))
		}

		s, err := eng.ForceComplete(ctx, sid, "u1", OutcomeLost)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, s.Status)
		assert.Contains(t, buf.String(), "clear pending round")
		assert.Contains(t, buf.String(), "tracker down")
	})

	t.Run("foreign session is not found", func(t *testing.T) {
		eng, _ := newTestEngine(t, Config{}, testCards(10))
		started, err := eng.StartSession(ctx, "u1")
		require.NoError(t, err)

		_, err = eng.ForceComplete(ctx, started.Session.ID, "u2", OutcomeLost)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestEngine_CurrentSession(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t, Config{}, testCards(10))

	_, err := eng.CurrentSession(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	started, err := eng.StartSession(ctx, "u1")
	require.NoError(t, err)
	sid := started.Session.ID

	card, _, err := eng.DrawNextCard(ctx, sid)
	require.NoError(t, err)
	_, err = eng.SubmitGuess(ctx, Guess{SessionID: sid, UserID: "u1", CardID: card.ID, Position: rightPosition(t, st, sid, card.ID)})
	require.NoError(t, err)

	cur, err := eng.CurrentSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sid, cur.Session.ID)
	require.Len(t, cur.Cards, 4)
	for _, c := range cur.Cards[:3] {
		assert.True(t, c.Entry.Initial)
		assert.Equal(t, c.Entry.CardID, c.Card.ID)
	}
	assert.Equal(t, 1, cur.Cards[3].Entry.RoundNumber)
	assert.Equal(t, card.ID, cur.Cards[3].Card.ID)
}
