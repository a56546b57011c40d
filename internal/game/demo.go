package game

import (
	"context"
	"fmt"
)

type DemoRound struct {
	InitialCards []Card
	GuessCard    RoundCard
}

type DemoGuess struct {
	InitialCardIDs []int64
	CardID         int64
	Position       int
	TimedOut       bool
}

type DemoResult struct {
	IsCorrect    bool
	CorrectIndex int
	GuessCard    *Card
	Outcome      Outcome
	TimedOut     bool
}

// StartDemo deals three sorted cards plus one card to place. Nothing is stored.
func (e *Engine) StartDemo(ctx context.Context) (DemoRound, error) {
	all, err := e.catalog.Cards(ctx)
	if err != nil {
		return DemoRound{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if len(all) < InitialCards+1 {
		return DemoRound{}, fmt.Errorf("%w: only %d cards", ErrCatalogUnavailable, len(all))
	}

	drawn := e.draw(all, InitialCards+1)
	initial := drawn[:InitialCards]
	SortByScore(initial)

	return DemoRound{
		InitialCards: initial,
		GuessCard:    drawn[InitialCards].Reduced(),
	}, nil
}

// GuessDemo runs the same placement check as SubmitGuess for a single
// anonymous round. Scores always come from the catalog, never the caller.
func (e *Engine) GuessDemo(ctx context.Context, g DemoGuess) (DemoResult, error) {
	all, err := e.catalog.Cards(ctx)
	if err != nil {
		return DemoResult{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	byID := indexCards(all)

	guess, ok := byID[g.CardID]
	if !ok {
		return DemoResult{}, ErrCardNotFound
	}

	owned := make([]Card, 0, len(g.InitialCardIDs))
	for _, id := range g.InitialCardIDs {
		c, ok := byID[id]
		if !ok {
			return DemoResult{}, ErrCardNotFound
		}
		owned = append(owned, c)
	}
	SortByScore(owned)

	correct, correctIndex := Judge(owned, guess, g.Position, g.TimedOut)

	res := DemoResult{
		IsCorrect:    correct,
		CorrectIndex: correctIndex,
		Outcome:      OutcomeLost,
		TimedOut:     g.TimedOut,
	}
	if correct {
		res.GuessCard = &guess
		res.Outcome = OutcomeWon
	}
	return res, nil
}
