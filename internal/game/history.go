package game

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

const historyConcurrency = 4

// History returns every session of the user, newest first, each with its
// cards ordered initial-first then by round. Read only.
func (e *Engine) History(ctx context.Context, userID string) ([]SessionDetail, error) {
	sessions, err := e.sessions.SessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return []SessionDetail{}, nil
	}

	all, err := e.catalog.Cards(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	byID := indexCards(all)

	out := make([]SessionDetail, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyConcurrency)
	for i, s := range sessions {
		g.Go(func() error {
			d, err := e.detail(gctx, s, byID)
			if err != nil {
				return err
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b SessionDetail) int {
		return b.Session.CreatedAt.Compare(a.Session.CreatedAt)
	})
	return out, nil
}

// PlayerStats summarises a user's sessions.
type PlayerStats struct {
	Played  int
	Won     int
	Lost    int
	Ongoing int
}

func (e *Engine) Stats(ctx context.Context, userID string) (PlayerStats, error) {
	sessions, err := e.sessions.SessionsByUser(ctx, userID)
	if err != nil {
		return PlayerStats{}, fmt.Errorf("list sessions: %w", err)
	}
	var st PlayerStats
	for _, s := range sessions {
		st.Played++
		switch {
		case s.Status == StatusOngoing:
			st.Ongoing++
		case s.Outcome == OutcomeWon:
			st.Won++
		case s.Outcome == OutcomeLost:
			st.Lost++
		}
	}
	return st, nil
}
