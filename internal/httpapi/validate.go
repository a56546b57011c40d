package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"

	"example.com/stuff-happens/internal/api"
	"example.com/stuff-happens/internal/game"
)

const maxBody = 1 << 16

// ValidationError collects per-field messages for a malformed request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		msg := "invalid json"
		if errors.Is(err, io.EOF) {
			msg = "empty body"
		}
		return &ValidationError{Fields: map[string]string{"body": msg}}
	}
	return nil
}

func checkPositive(v *ValidationError, field string, n *int64) {
	switch {
	case n == nil:
		v.add(field, "required")
	case *n <= 0:
		v.add(field, "must be a positive integer")
	}
}

func checkPlacement(v *ValidationError, position *int, timedOut *bool) {
	if timedOut == nil {
		v.add("timedOut", "required")
		return
	}
	if *timedOut {
		return
	}
	switch {
	case position == nil:
		v.add("position", "required unless timedOut")
	case *position < 0:
		v.add("position", "must be a non-negative integer")
	}
}

func checkOutcome(v *ValidationError, outcome *string) game.Outcome {
	if outcome == nil {
		v.add("outcome", "required")
		return game.OutcomeNone
	}
	switch o := game.Outcome(*outcome); o {
	case game.OutcomeWon, game.OutcomeLost:
		return o
	}
	v.add("outcome", fmt.Sprintf("must be %q or %q", game.OutcomeWon, game.OutcomeLost))
	return game.OutcomeNone
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func validateGuess(req api.GuessRequest) (game.Guess, error) {
	var v ValidationError
	checkPositive(&v, "sessionId", req.SessionID)
	checkPositive(&v, "guessCardId", req.GuessCardID)
	checkPlacement(&v, req.Position, req.TimedOut)
	if err := v.err(); err != nil {
		return game.Guess{}, err
	}
	return game.Guess{
		SessionID: *req.SessionID,
		CardID:    *req.GuessCardID,
		Position:  deref(req.Position),
		TimedOut:  *req.TimedOut,
	}, nil
}

func validateForced(req api.GuessRequest) (int64, game.Outcome, error) {
	var v ValidationError
	checkPositive(&v, "sessionId", req.SessionID)
	o := checkOutcome(&v, req.Outcome)
	if err := v.err(); err != nil {
		return 0, "", err
	}
	return *req.SessionID, o, nil
}

func validateDemoGuess(req api.DemoGuessRequest) (game.DemoGuess, error) {
	var v ValidationError
	if len(req.InitialCards) < game.InitialCards {
		v.add("initialCards", fmt.Sprintf("must contain at least %d cards", game.InitialCards))
	}
	ids := make([]int64, 0, len(req.InitialCards))
	for i, c := range req.InitialCards {
		if c.ID <= 0 {
			v.add(fmt.Sprintf("initialCards[%d].id", i), "must be a positive integer")
		}
		ids = append(ids, c.ID)
	}
	checkPositive(&v, "guessCardId", req.GuessCardID)
	checkPlacement(&v, req.Position, req.TimedOut)
	if err := v.err(); err != nil {
		return game.DemoGuess{}, err
	}
	return game.DemoGuess{
		InitialCardIDs: ids,
		CardID:         *req.GuessCardID,
		Position:       deref(req.Position),
		TimedOut:       *req.TimedOut,
	}, nil
}

func validateCredentials(c *api.Credentials) error {
	var v ValidationError
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" {
		v.add("username", "required")
	}
	if c.Password == "" {
		v.add("password", "required")
	}
	return v.err()
}
