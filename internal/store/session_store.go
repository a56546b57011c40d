package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/stuff-happens/internal/game"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `id, user_id, status, outcome, created_at`

func (s *SessionStore) CreateSession(ctx context.Context, userID string, createdAt time.Time, initial []game.Card) (game.Session, error) {
	var out game.Session
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			INSERT INTO sessions (user_id, status, created_at)
			VALUES ($1, 'ongoing', $2)
			RETURNING `+sessionColumns,
			nullString(userID), createdAt,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, scanSession)
		if err != nil {
			return err
		}

		for _, c := range initial {
			if _, err := tx.Exec(ctx, `
				INSERT INTO session_cards (session_id, card_id, round_number, won, initial_card)
				VALUES ($1, $2, NULL, TRUE, TRUE)
			`, out.ID, c.ID); err != nil {
				return fmt.Errorf("initial card %d: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return game.Session{}, err
	}
	return out, nil
}

func (s *SessionStore) Session(ctx context.Context, id int64) (game.Session, error) {
	rows, err := s.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if err != nil {
		return game.Session{}, err
	}
	sess, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.Session{}, game.ErrNotFound
	}
	return sess, err
}

func (s *SessionStore) OngoingSession(ctx context.Context, userID string) (game.Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND status = 'ongoing'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID)
	if err != nil {
		return game.Session{}, err
	}
	sess, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.Session{}, game.ErrNotFound
	}
	return sess, err
}

func (s *SessionStore) SessionsByUser(ctx context.Context, userID string) ([]game.Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanSession)
}

func (s *SessionStore) Entries(ctx context.Context, sessionID int64) ([]game.Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT session_id, card_id, round_number, won, initial_card
		FROM session_cards
		WHERE session_id = $1
		ORDER BY initial_card DESC, round_number ASC NULLS FIRST
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.Entry, error) {
		var (
			e     game.Entry
			round *int32
		)
		if err := row.Scan(&e.SessionID, &e.CardID, &round, &e.Won, &e.Initial); err != nil {
			return game.Entry{}, err
		}
		if round != nil {
			e.RoundNumber = int(*round)
		}
		return e, nil
	})
}

func (s *SessionStore) RecordRound(ctx context.Context, e game.Entry, status game.Status, outcome game.Outcome) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO session_cards (session_id, card_id, round_number, won, initial_card)
			VALUES ($1, $2, $3, $4, $5)
		`, e.SessionID, e.CardID, nullRound(e), e.Won, e.Initial); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		return setStatus(ctx, tx, e.SessionID, status, outcome)
	})
}

func (s *SessionStore) SetStatus(ctx context.Context, sessionID int64, status game.Status, outcome game.Outcome) error {
	return setStatus(ctx, s.db, sessionID, status, outcome)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func setStatus(ctx context.Context, db execer, sessionID int64, status game.Status, outcome game.Outcome) error {
	tag, err := db.Exec(ctx, `
		UPDATE sessions SET status = $2, outcome = $3 WHERE id = $1
	`, sessionID, string(status), nullString(string(outcome)))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return game.ErrNotFound
	}
	return nil
}

func scanSession(row pgx.CollectableRow) (game.Session, error) {
	var (
		sess    game.Session
		userID  *string
		status  string
		outcome *string
	)
	if err := row.Scan(&sess.ID, &userID, &status, &outcome, &sess.CreatedAt); err != nil {
		return game.Session{}, err
	}
	if userID != nil {
		sess.UserID = *userID
	}
	sess.Status = game.Status(status)
	if outcome != nil {
		sess.Outcome = game.Outcome(*outcome)
	}
	return sess, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullRound(e game.Entry) *int32 {
	if e.Initial || e.RoundNumber == 0 {
		return nil
	}
	n := int32(e.RoundNumber)
	return &n
}
