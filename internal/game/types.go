package game

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// Card is a catalog entry. Score is unique across the whole catalog.
type Card struct {
	ID       int64
	Name     string
	ImageRef string
	Score    float64
	Theme    string
}

// RoundCard is what a player sees while guessing: no score.
type RoundCard struct {
	ID       int64
	Name     string
	ImageRef string
}

func (c Card) Reduced() RoundCard {
	return RoundCard{ID: c.ID, Name: c.Name, ImageRef: c.ImageRef}
}

type Session struct {
	ID        int64
	UserID    string // empty for demo sessions
	Status    Status
	Outcome   Outcome
	CreatedAt time.Time
}

// Entry is one card played (or seeded) within a session.
// RoundNumber is 0 for initial cards.
type Entry struct {
	SessionID   int64
	CardID      int64
	RoundNumber int
	Won         bool
	Initial     bool
}

// SessionCard joins an Entry to its Card.
type SessionCard struct {
	Entry Entry
	Card  Card
}

type SessionDetail struct {
	Session Session
	Cards   []SessionCard
}

type Started struct {
	Session      Session
	InitialCards []Card
}

type Guess struct {
	SessionID int64
	UserID    string
	CardID    int64
	Position  int
	TimedOut  bool
}

type GuessResult struct {
	IsCorrect    bool
	CorrectIndex int
	GuessCard    *Card // only set when IsCorrect
	Status       Status
	Outcome      Outcome
	TimedOut     bool
	RoundNumber  int
	Wins         int
	Losses       int
}

// Envelope is the event feed frame: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
