package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/lexicard/lexicard-api/internal/domain"
)

// DeckStore reads decks. Deck CRUD lives outside this service.
type DeckStore interface {
	// GetForUser returns the deck when it exists and belongs to userID.
	// Returns ErrDeckNotFound otherwise, so callers cannot probe for decks
	// owned by other users.
	GetForUser(ctx context.Context, deckID, userID uuid.UUID) (*domain.Deck, error)
}
