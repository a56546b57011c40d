// Package api holds the JSON contracts shared by the server and the CLI client.
package api

import (
	"time"

	"example.com/stuff-happens/internal/game"
)

type Card struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	ImageRef        string  `json:"imageRef"`
	MisfortuneScore float64 `json:"misfortuneScore"`
	Theme           string  `json:"theme"`
}

// RoundCard is the reduced view of a card being guessed.
type RoundCard struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ImageRef   string `json:"imageRef"`
	DeadlineMs int64  `json:"deadlineMs,omitempty"`
}

type Session struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Status    string    `json:"status"`
	Outcome   *string   `json:"outcome"`
	CreatedAt time.Time `json:"createdAt"`
}

type SessionCard struct {
	Card        Card `json:"card"`
	Won         bool `json:"won"`
	RoundNumber *int `json:"roundNumber"`
	InitialCard bool `json:"initialCard"`
}

type SessionView struct {
	Session Session       `json:"session"`
	Cards   []SessionCard `json:"cards"`
}

type StartSessionResponse struct {
	SessionID    int64     `json:"sessionId"`
	InitialCards []Card    `json:"initialCards"`
	StartedAt    time.Time `json:"startedAt"`
}

// GuessRequest uses pointers so that missing fields can be told apart from zero values.
// IsGameOver with Outcome selects forced completion instead of scoring a card.
type GuessRequest struct {
	SessionID   *int64  `json:"sessionId"`
	GuessCardID *int64  `json:"guessCardId"`
	Position    *int    `json:"position"`
	TimedOut    *bool   `json:"timedOut"`
	IsGameOver  bool    `json:"isGameOver,omitempty"`
	Outcome     *string `json:"outcome,omitempty"`
}

type GuessResponse struct {
	IsCorrect    bool    `json:"isCorrect"`
	CorrectIndex int     `json:"correctIndex"`
	GuessCard    *Card   `json:"guessCard,omitempty"`
	Status       string  `json:"status"`
	Outcome      *string `json:"outcome"`
	TimedOut     bool    `json:"timedOut"`
	RoundNumber  int     `json:"roundNumber,omitempty"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
}

type CompleteRequest struct {
	Outcome string `json:"outcome"`
}

type CompleteResponse struct {
	Session Session `json:"session"`
}

type DemoStartResponse struct {
	InitialCards []Card    `json:"initialCards"`
	GuessCard    RoundCard `json:"guessCard"`
}

// DemoGuessRequest carries the caller's initial cards. Only their ids are trusted.
type DemoGuessRequest struct {
	InitialCards []Card `json:"initialCards"`
	GuessCardID  *int64 `json:"guessCardId"`
	Position     *int   `json:"position"`
	TimedOut     *bool  `json:"timedOut"`
}

type DemoGuessResponse struct {
	IsCorrect    bool    `json:"isCorrect"`
	CorrectIndex int     `json:"correctIndex"`
	GuessCard    *Card   `json:"guessCard,omitempty"`
	Outcome      *string `json:"outcome"`
	TimedOut     bool    `json:"timedOut"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AccessToken string `json:"accessToken"`
}

type Stats struct {
	Played  int `json:"played"`
	Won     int `json:"won"`
	Lost    int `json:"lost"`
	Ongoing int `json:"ongoing"`
}

type CurrentUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	Stats     Stats     `json:"stats"`
}

type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func FromCard(c game.Card) Card {
	return Card{ID: c.ID, Name: c.Name, ImageRef: c.ImageRef, MisfortuneScore: c.Score, Theme: c.Theme}
}

func FromCards(cs []game.Card) []Card {
	out := make([]Card, len(cs))
	for i, c := range cs {
		out[i] = FromCard(c)
	}
	return out
}

func (c Card) Game() game.Card {
	return game.Card{ID: c.ID, Name: c.Name, ImageRef: c.ImageRef, Score: c.MisfortuneScore, Theme: c.Theme}
}

func FromRoundCard(c game.RoundCard, deadline time.Time) RoundCard {
	rc := RoundCard{ID: c.ID, Name: c.Name, ImageRef: c.ImageRef}
	if !deadline.IsZero() {
		rc.DeadlineMs = deadline.UnixMilli()
	}
	return rc
}

func (c RoundCard) Game() game.RoundCard {
	return game.RoundCard{ID: c.ID, Name: c.Name, ImageRef: c.ImageRef}
}

// Deadline is the zero time when the server does not enforce one.
func (c RoundCard) Deadline() time.Time {
	if c.DeadlineMs == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.DeadlineMs)
}

func FromSession(s game.Session) Session {
	return Session{
		ID:        s.ID,
		UserID:    s.UserID,
		Status:    string(s.Status),
		Outcome:   FromOutcome(s.Outcome),
		CreatedAt: s.CreatedAt,
	}
}

func (s Session) Game() game.Session {
	return game.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		Status:    game.Status(s.Status),
		Outcome:   ToOutcome(s.Outcome),
		CreatedAt: s.CreatedAt,
	}
}

func FromDetail(d game.SessionDetail) SessionView {
	cards := make([]SessionCard, len(d.Cards))
	for i, sc := range d.Cards {
		cards[i] = SessionCard{
			Card:        FromCard(sc.Card),
			Won:         sc.Entry.Won,
			InitialCard: sc.Entry.Initial,
		}
		if !sc.Entry.Initial {
			n := sc.Entry.RoundNumber
			cards[i].RoundNumber = &n
		}
	}
	return SessionView{Session: FromSession(d.Session), Cards: cards}
}

func FromGuessResult(r game.GuessResult) GuessResponse {
	out := GuessResponse{
		IsCorrect:    r.IsCorrect,
		CorrectIndex: r.CorrectIndex,
		Status:       string(r.Status),
		Outcome:      FromOutcome(r.Outcome),
		TimedOut:     r.TimedOut,
		RoundNumber:  r.RoundNumber,
		Wins:         r.Wins,
		Losses:       r.Losses,
	}
	if r.GuessCard != nil {
		c := FromCard(*r.GuessCard)
		out.GuessCard = &c
	}
	return out
}

func FromDemoResult(r game.DemoResult) DemoGuessResponse {
	out := DemoGuessResponse{
		IsCorrect:    r.IsCorrect,
		CorrectIndex: r.CorrectIndex,
		Outcome:      FromOutcome(r.Outcome),
		TimedOut:     r.TimedOut,
	}
	if r.GuessCard != nil {
		c := FromCard(*r.GuessCard)
		out.GuessCard = &c
	}
	return out
}

func FromOutcome(o game.Outcome) *string {
	if o == game.OutcomeNone {
		return nil
	}
	s := string(o)
	return &s
}

func ToOutcome(s *string) game.Outcome {
	if s == nil {
		return game.OutcomeNone
	}
	return game.Outcome(*s)
}
