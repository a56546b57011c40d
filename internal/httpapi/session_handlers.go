package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"example.com/stuff-happens/internal/api"
	"example.com/stuff-happens/internal/game"
)

// GameHandler exposes the round engine, history and demo round over HTTP.
type GameHandler struct {
	Engine *game.Engine
	Log    *slog.Logger
}

func (h *GameHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	started, err := h.Engine.StartSession(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	writeJSON(w, http.StatusCreated, api.StartSessionResponse{
		SessionID:    started.Session.ID,
		InitialCards: api.FromCards(started.InitialCards),
		StartedAt:    started.Session.CreatedAt,
	})
}

func (h *GameHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	d, err := h.Engine.CurrentSession(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromDetail(d))
}

func (h *GameHandler) NextRound(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	card, deadline, err := h.Engine.NextRound(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromRoundCard(card, deadline))
}

func (h *GameHandler) Guess(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req api.GuessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.Log, scopeGuess, err)
		return
	}

	if req.IsGameOver {
		sessionID, outcome, err := validateForced(req)
		if err != nil {
			writeDomainError(w, r, h.Log, scopeGuess, err)
			return
		}
		s, err := h.Engine.ForceComplete(r.Context(), sessionID, userID, outcome)
		if err != nil {
			writeDomainError(w, r, h.Log, scopeGuess, err)
			return
		}
		writeJSON(w, http.StatusOK, api.GuessResponse{
			Status:  string(s.Status),
			Outcome: api.FromOutcome(s.Outcome),
		})
		return
	}

	g, err := validateGuess(req)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeGuess, err)
		return
	}
	g.UserID = userID

	res, err := h.Engine.SubmitGuess(r.Context(), g)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeGuess, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromGuessResult(res))
}

func (h *GameHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	sessionID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		writeDomainError(w, r, h.Log, scopeDefault, &ValidationError{
			Fields: map[string]string{"id": "must be a positive integer"},
		})
		return
	}

	var req api.CompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}
	var v ValidationError
	outcome := checkOutcome(&v, &req.Outcome)
	if err := v.err(); err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	s, err := h.Engine.ForceComplete(r.Context(), sessionID, userID, outcome)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, api.CompleteResponse{Session: api.FromSession(s)})
}

func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	hist, err := h.Engine.History(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	out := make([]api.SessionView, len(hist))
	for i, d := range hist {
		out[i] = api.FromDetail(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *GameHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing auth context")
	}
	return userID, ok
}
