package store

import (
	"context"
	"errors"
	"fmt"

	"example.com/stuff-happens/internal/game"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) Cards(ctx context.Context) ([]game.Card, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, image_ref, misfortune_score, theme
		FROM cards
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCard)
}

func (s *CardStore) Card(ctx context.Context, id int64) (game.Card, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, image_ref, misfortune_score, theme
		FROM cards
		WHERE id = $1
	`, id)
	if err != nil {
		return game.Card{}, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCard)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.Card{}, game.ErrCardNotFound
	}
	return c, err
}

// UpsertCards inserts or refreshes catalog rows in a single batch.
func (s *CardStore) UpsertCards(ctx context.Context, cards []game.Card) error {
	b := &pgx.Batch{}
	for _, c := range cards {
		b.Queue(`
			INSERT INTO cards (id, name, image_ref, misfortune_score, theme)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    image_ref = EXCLUDED.image_ref,
			    misfortune_score = EXCLUDED.misfortune_score,
			    theme = EXCLUDED.theme
		`, c.ID, c.Name, c.ImageRef, c.Score, c.Theme)
	}

	br := s.db.SendBatch(ctx, b)
	defer br.Close()
	for _, c := range cards {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert card %d: %w", c.ID, err)
		}
	}
	return nil
}

func scanCard(row pgx.CollectableRow) (game.Card, error) {
	var c game.Card
	err := row.Scan(&c.ID, &c.Name, &c.ImageRef, &c.Score, &c.Theme)
	return c, err
}
