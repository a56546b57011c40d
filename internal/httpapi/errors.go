package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"example.com/stuff-happens/internal/api"
	"example.com/stuff-happens/internal/game"
)

// scope changes how a few domain errors map to status codes.
type scope int

const (
	scopeDefault scope = iota
	scopeGuess
	scopeDemo
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, api.ErrorResponse{Code: errCode, Message: msg})
}

// writeDomainError maps err onto a stable code. Anything unrecognised is
// logged and reported as a generic internal error.
func writeDomainError(w http.ResponseWriter, r *http.Request, log *slog.Logger, sc scope, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{
			Code:    "bad_request",
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, game.ErrNotFound):
		code := http.StatusNotFound
		if sc == scopeGuess {
			code = http.StatusBadRequest
		}
		writeError(w, code, "not_found", "session not found")
	case errors.Is(err, game.ErrAlreadyCompleted):
		writeError(w, http.StatusBadRequest, "already_completed", "session is already completed")
	case errors.Is(err, game.ErrNoOngoingSession):
		writeError(w, http.StatusBadRequest, "no_ongoing_session", "no ongoing session")
	case errors.Is(err, game.ErrCardAlreadyPlayed):
		writeError(w, http.StatusBadRequest, "card_already_played", "card already played in this session")
	case errors.Is(err, game.ErrCardNotFound):
		code := http.StatusNotFound
		if sc == scopeGuess {
			code = http.StatusBadRequest
		}
		writeError(w, code, "card_not_found", "card not found")
	case errors.Is(err, game.ErrNoCardsAvailable):
		writeError(w, http.StatusNotFound, "no_cards_available", "no cards left to draw")
	case errors.Is(err, game.ErrOutcomeMismatch):
		writeError(w, http.StatusConflict, "outcome_mismatch", "outcome does not match recorded rounds")
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
