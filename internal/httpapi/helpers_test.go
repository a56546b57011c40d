package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/stuff-happens/internal/api"
	"example.com/stuff-happens/internal/auth"
	"example.com/stuff-happens/internal/game"
	"example.com/stuff-happens/internal/store"
	"github.com/stretchr/testify/require"
)

// demoScores puts 1, 5, 9 first so the textbook demo example is reproducible.
var demoScores = []float64{1, 5, 9, 7, 3, 11, 13, 15, 17, 19, 21, 23}

func testCatalog() []game.Card {
	out := make([]game.Card, len(demoScores))
	for i, s := range demoScores {
		id := int64(i + 1)
		out[i] = game.Card{
			ID:       id,
			Name:     "card",
			ImageRef: "/assets/card.png",
			Score:    s,
			Theme:    "university life",
		}
	}
	return out
}

type testEnv struct {
	srv   *httptest.Server
	store *game.MemoryStore
	users *store.MemoryUserStore
	auth  *auth.Service
}

func newTestEnv(t *testing.T, cfg game.Config) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := game.NewMemoryStore(testCatalog()...)
	hub := game.NewHub()
	eng := game.NewEngine(cfg, st, st, game.WithPublisher(hub), game.WithLogger(log))
	svc := auth.NewService([]byte("test-secret"))
	users := store.NewMemoryUserStore()

	mux := http.NewServeMux()
	Routes{
		Auth: &AuthHandler{
			Users:    users,
			Stats:    eng,
			Auth:     svc,
			TokenTTL: time.Hour,
			Log:      log,
		},
		Game:     &GameHandler{Engine: eng, Log: log},
		Events:   &EventsHandler{Hub: hub, Log: log},
		Verifier: svc,
	}.Register(mux)

	srv := httptest.NewServer(RequestLogger(log)(mux))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st, users: users, auth: svc}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

// login registers username and returns an access token.
func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	creds := api.Credentials{Username: username, Password: "pw-" + username}

	code, body := e.do(t, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, code, string(body))

	code, body = e.do(t, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, code, string(body))
	var lr api.LoginResponse
	require.NoError(t, json.Unmarshal(body, &lr))
	return lr.AccessToken
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	return decode[api.ErrorResponse](t, body).Code
}

// correctPosition computes the answer from the owned cards held by the store.
func (e *testEnv) correctPosition(t *testing.T, sessionID, cardID int64) int {
	t.Helper()
	ctx := context.Background()
	entries, err := e.store.Entries(ctx, sessionID)
	require.NoError(t, err)
	guess, err := e.store.Card(ctx, cardID)
	require.NoError(t, err)

	var owned []game.Card
	for _, en := range entries {
		if en.Won {
			c, err := e.store.Card(ctx, en.CardID)
			require.NoError(t, err)
			owned = append(owned, c)
		}
	}
	return game.CorrectIndex(owned, guess.Score)
}

func ptr[T any](v T) *T { return &v }
