package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/lexicard/lexicard-api/internal/domain"
)

// SimilarCard is a card returned by a vector similarity lookup together with
// its cosine distance to the query embedding.
type SimilarCard struct {
	Card     domain.Card `json:"card"`
	Distance float64     `json:"distance"`
}

// CardStore defines the card persistence operations the AI features need.
type CardStore interface {
	// CreateMultiple saves cards in one statement. It should run inside a
	// transaction obtained through WithTx and RunInTransaction.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// ListByDeck returns up to limit cards of a deck ordered by creation time.
	ListByDeck(ctx context.Context, deckID uuid.UUID, limit int) ([]*domain.Card, error)

	// ListMissingTranscription returns up to limit cards owned by userID that
	// have no transcription yet. A nil deckID searches every deck of the user.
	ListMissingTranscription(
		ctx context.Context,
		userID uuid.UUID,
		deckID *uuid.UUID,
		limit int,
	) ([]*domain.Card, error)

	// UpdatePronunciation sets the transcription and pronunciation URL of a card.
	// Returns ErrCardNotFound if the card does not exist.
	UpdatePronunciation(ctx context.Context, id uuid.UUID, transcription, url string) error

	// AssignSynonymGroup sets groupID on every listed card that belongs to
	// deckID and returns the number of rows changed.
	AssignSynonymGroup(ctx context.Context, deckID uuid.UUID, cardIDs []uuid.UUID, groupID uuid.UUID) (int64, error)

	// FindSimilar ranks the user's cards by embedding distance, skipping
	// excludeDeckID when it is set.
	FindSimilar(
		ctx context.Context,
		userID uuid.UUID,
		embedding []float32,
		excludeDeckID *uuid.UUID,
		limit int,
	) ([]SimilarCard, error)

	// WithTx returns a CardStore that runs its statements in tx.
	WithTx(tx *sql.Tx) CardStore
}
