package game

import "errors"

var (
	// ErrNotFound covers both a missing session and one owned by someone else.
	ErrNotFound           = errors.New("session not found")
	ErrAlreadyCompleted   = errors.New("session already completed")
	ErrCardNotFound       = errors.New("card not found")
	ErrNoCardsAvailable   = errors.New("no cards available")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrCardAlreadyPlayed  = errors.New("card already played in this session")
	ErrNoOngoingSession   = errors.New("no ongoing session")
	ErrOutcomeMismatch    = errors.New("outcome does not match recorded rounds")
)
