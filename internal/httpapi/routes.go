package httpapi

import "net/http"

type Routes struct {
	Auth     *AuthHandler
	Game     *GameHandler
	Events   *EventsHandler
	Verifier Verifier
}

func (rt Routes) Register(mux *http.ServeMux) {
	authed := AuthMiddleware(rt.Verifier)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	mux.HandleFunc("POST /api/auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", rt.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", rt.Auth.Logout)
	mux.Handle("GET /api/auth/current", protect(rt.Auth.Current))

	mux.Handle("POST /api/sessions", protect(rt.Game.StartSession))
	mux.Handle("GET /api/sessions/current", protect(rt.Game.CurrentSession))
	mux.Handle("POST /api/sessions/next-round", protect(rt.Game.NextRound))
	mux.Handle("POST /api/sessions/guess", protect(rt.Game.Guess))
	mux.Handle("POST /api/sessions/{id}/complete", protect(rt.Game.Complete))
	mux.Handle("GET /api/sessions/history", protect(rt.Game.History))

	mux.HandleFunc("GET /api/demo", rt.Game.StartDemo)
	mux.HandleFunc("POST /api/demo/guess", rt.Game.GuessDemo)

	if rt.Events != nil {
		mux.Handle("GET /ws/events", protect(rt.Events.Serve))
	}
}
