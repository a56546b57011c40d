package api

import (
	"encoding/json"
	"testing"
	"time"

	"example.com/stuff-happens/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundCard_NeverCarriesScore(t *testing.T) {
	c := game.Card{ID: 4, Name: "Lost keys", ImageRef: "/assets/card4.png", Score: 7, Theme: "university life"}
	b, err := json.Marshal(FromRoundCard(c.Reduced(), time.Time{}))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "misfortuneScore")
	assert.NotContains(t, m, "deadlineMs")
	assert.Equal(t, "Lost keys", m["name"])
}

func TestFromDetail_RoundNumbers(t *testing.T) {
	d := game.SessionDetail{
		Session: game.Session{ID: 1, Status: game.StatusOngoing},
		Cards: []game.SessionCard{
			{Entry: game.Entry{CardID: 1, Won: true, Initial: true}, Card: game.Card{ID: 1}},
			{Entry: game.Entry{CardID: 2, RoundNumber: 1}, Card: game.Card{ID: 2}},
		},
	}
	v := FromDetail(d)

	assert.Nil(t, v.Session.Outcome)
	assert.Nil(t, v.Cards[0].RoundNumber)
	assert.True(t, v.Cards[0].InitialCard)
	require.NotNil(t, v.Cards[1].RoundNumber)
	assert.Equal(t, 1, *v.Cards[1].RoundNumber)
	assert.False(t, v.Cards[1].Won)
}

func TestFromGuessResult_RevealsOnlyWhenCorrect(t *testing.T) {
	lost := FromGuessResult(game.GuessResult{IsCorrect: false, CorrectIndex: 2, Status: game.StatusOngoing})
	assert.Nil(t, lost.GuessCard)
	assert.Nil(t, lost.Outcome)

	card := game.Card{ID: 9, Score: 42}
	won := FromGuessResult(game.GuessResult{
		IsCorrect: true, GuessCard: &card, Status: game.StatusCompleted, Outcome: game.OutcomeWon,
	})
	require.NotNil(t, won.GuessCard)
	assert.InDelta(t, 42, won.GuessCard.MisfortuneScore, 0)
	require.NotNil(t, won.Outcome)
	assert.Equal(t, "won", *won.Outcome)
}
