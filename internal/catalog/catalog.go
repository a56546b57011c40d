// Package catalog holds the built-in card catalog and seeds it into a store.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"example.com/stuff-happens/internal/game"
	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var builtin []byte

// File is the top-level YAML structure.
type File struct {
	Theme string  `yaml:"theme"`
	Cards []Entry `yaml:"cards"`
}

type Entry struct {
	ID    int64   `yaml:"id"`
	Name  string  `yaml:"name"`
	Image string  `yaml:"image"`
	Score float64 `yaml:"score"`
	Theme string  `yaml:"theme"` // overrides File.Theme
}

// Upserter is the write side of the catalog store.
type Upserter interface {
	UpsertCards(ctx context.Context, cards []game.Card) error
}

// Builtin returns the embedded catalog.
func Builtin() ([]game.Card, error) {
	return Parse(builtin)
}

// Parse decodes and validates a catalog file.
func Parse(data []byte) ([]game.Card, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}

	cards := make([]game.Card, 0, len(f.Cards))
	for _, e := range f.Cards {
		theme := e.Theme
		if theme == "" {
			theme = f.Theme
		}
		cards = append(cards, game.Card{
			ID:       e.ID,
			Name:     e.Name,
			ImageRef: e.Image,
			Score:    e.Score,
			Theme:    theme,
		})
	}
	if err := Validate(cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// Validate enforces positive unique ids and unique scores, and that there are
// enough cards for a demo round (three initial cards plus one to place).
func Validate(cards []game.Card) error {
	if len(cards) < game.InitialCards+1 {
		return fmt.Errorf("catalog needs at least %d cards, got %d", game.InitialCards+1, len(cards))
	}

	ids := make(map[int64]bool, len(cards))
	scores := make(map[float64]int64, len(cards))
	var errs []error
	for _, c := range cards {
		if c.ID <= 0 {
			errs = append(errs, fmt.Errorf("card %q: id must be positive", c.Name))
		}
		if ids[c.ID] {
			errs = append(errs, fmt.Errorf("card %d: duplicate id", c.ID))
		}
		ids[c.ID] = true

		if c.Name == "" {
			errs = append(errs, fmt.Errorf("card %d: empty name", c.ID))
		}
		if other, ok := scores[c.Score]; ok {
			errs = append(errs, fmt.Errorf("card %d: score %v already used by card %d", c.ID, c.Score, other))
		}
		scores[c.Score] = c.ID
	}
	return errors.Join(errs...)
}

// Seed writes cards into the store.
func Seed(ctx context.Context, dst Upserter, cards []game.Card) error {
	if err := dst.UpsertCards(ctx, cards); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}
