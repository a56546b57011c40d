package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/stuff-happens/internal/auth"
	"example.com/stuff-happens/internal/catalog"
	"example.com/stuff-happens/internal/game"
	"example.com/stuff-happens/internal/httpapi"
	"example.com/stuff-happens/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	cards, err := catalog.Builtin()
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := game.NewMemoryStore(cards...)
	hub := game.NewHub()
	eng := game.NewEngine(game.Config{RoundDuration: 30 * time.Second}, st, st,
		game.WithPublisher(hub), game.WithLogger(log))
	svc := auth.NewService([]byte("test-secret"))

	mux := http.NewServeMux()
	httpapi.Routes{
		Auth: &httpapi.AuthHandler{
			Users:    store.NewMemoryUserStore(),
			Stats:    eng,
			Auth:     svc,
			TokenTTL: time.Hour,
			Log:      log,
		},
		Game:     &httpapi.GameHandler{Engine: eng, Log: log},
		Events:   &httpapi.EventsHandler{Hub: hub, Log: log},
		Verifier: svc,
	}.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func loggedIn(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	ctx := context.Background()
	c := New(srv.URL+"/", "")
	require.NoError(t, c.Register(ctx, "alice", "secret"))
	_, err := c.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, c.Token())
	return c
}

func TestClient_PlaysAFullSession(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := loggedIn(t, srv)

	s := NewSynchronizer(c, WithTimer(&manualTimer{}))
	defer s.Close()
	require.NoError(t, s.Start(ctx))

	for i := 0; i < 5 && !s.State().Over; i++ {
		round, err := s.NextRound(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, round.Name)
		assert.False(t, s.State().Deadline.IsZero())

		_, err = s.Submit(ctx, 0)
		require.NoError(t, err)
	}

	st := s.State()
	require.True(t, st.Over)
	assert.Equal(t, game.StatusCompleted, st.Status)
	assert.Contains(t, []game.Outcome{game.OutcomeWon, game.OutcomeLost}, st.Outcome)
	assert.NoError(t, st.Err)

	hist, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Len(t, hist[0].Cards, 3+len(st.Trail))
	assert.Equal(t, string(st.Outcome), *hist[0].Session.Outcome)

	me, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, me.Stats.Played)
}

func TestClient_APIError(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := loggedIn(t, srv)

	_, err := c.CurrentSession(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)

	require.NoError(t, c.Logout(ctx))
	_, err = c.History(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestClient_Demo(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := New(srv.URL, "")

	s := NewSynchronizer(c, WithTimer(&manualTimer{}))
	defer s.Close()
	require.NoError(t, s.StartDemo(ctx))

	st := s.State()
	require.Len(t, st.Owned, 3)
	require.NotNil(t, st.Round)

	res, err := s.Submit(ctx, 1)
	require.NoError(t, err)
	st = s.State()
	assert.True(t, st.Over)
	if res.IsCorrect {
		assert.Equal(t, game.OutcomeWon, st.Outcome)
		assert.Len(t, st.Owned, 4)
	} else {
		assert.Equal(t, game.OutcomeLost, st.Outcome)
		assert.Len(t, st.Owned, 3)
	}
}

func TestClient_Watch(t *testing.T) {
	srv := newServer(t)
	c := loggedIn(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan string, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- c.Watch(ctx, func(e game.Envelope) { events <- e.Type })
	}()

	// the feed subscribes during the handshake; retry the trigger until it is seen
	var got string
	deadline := time.After(3 * time.Second)
	for got == "" {
		_, err := c.StartSession(ctx)
		require.NoError(t, err)
		select {
		case got = <-events:
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no event received")
		}
	}
	assert.Equal(t, game.EventSessionStarted, got)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}
