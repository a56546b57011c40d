package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"example.com/stuff-happens/internal/api"
	"example.com/stuff-happens/internal/auth"
	"example.com/stuff-happens/internal/game"
	"example.com/stuff-happens/internal/store"
	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u store.User) error
	GetByUsername(ctx context.Context, username string) (store.User, error)
	GetByID(ctx context.Context, id string) (store.User, error)
}

type TokenSigner interface {
	Sign(userID, username string, ttl time.Duration) (string, error)
}

type StatsSource interface {
	Stats(ctx context.Context, userID string) (game.PlayerStats, error)
}

type AuthHandler struct {
	Users    UserStore
	Stats    StatsSource
	Auth     TokenSigner
	TokenTTL time.Duration
	Log      *slog.Logger
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}
	if err := validateCredentials(&req); err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	u := store.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := h.Users.Create(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username_taken", "username already exists")
			return
		}
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	h.Log.Info("user registered", "user", u.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": u.ID, "username": u.Username})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}
	if err := validateCredentials(&req); err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	u, err := h.Users.GetByUsername(r.Context(), req.Username)
	if errors.Is(err, store.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	token, err := h.Auth.Sign(u.ID, u.Username, h.TokenTTL)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	writeJSON(w, http.StatusOK, api.LoginResponse{ID: u.ID, Username: u.Username, AccessToken: token})
}

// Logout is a no-op for stateless tokens; the client drops its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing auth context")
		return
	}

	u, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user not found")
		return
	}

	st, err := h.Stats.Stats(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.Log, scopeDefault, err)
		return
	}

	writeJSON(w, http.StatusOK, api.CurrentUser{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		Stats: api.Stats{
			Played:  st.Played,
			Won:     st.Won,
			Lost:    st.Lost,
			Ongoing: st.Ongoing,
		},
	})
}
