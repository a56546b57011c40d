package httpapi

import (
	"net/http"
	"time"

	"example.com/stuff-happens/internal/api"
)

func (h *GameHandler) StartDemo(w http.ResponseWriter, r *http.Request) {
	round, err := h.Engine.StartDemo(r.Context())
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDemo, err)
		return
	}
	writeJSON(w, http.StatusOK, api.DemoStartResponse{
		InitialCards: api.FromCards(round.InitialCards),
		GuessCard:    api.FromRoundCard(round.GuessCard, time.Time{}),
	})
}

func (h *GameHandler) GuessDemo(w http.ResponseWriter, r *http.Request) {
	var req api.DemoGuessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.Log, scopeDemo, err)
		return
	}
	g, err := validateDemoGuess(req)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDemo, err)
		return
	}

	res, err := h.Engine.GuessDemo(r.Context(), g)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDemo, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromDemoResult(res))
}
