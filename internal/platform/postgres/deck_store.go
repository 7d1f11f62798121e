package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/platform/logger"
	"github.com/lexicard/lexicard-api/internal/store"
)

// PostgresDeckStore implements store.DeckStore.
type PostgresDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.DeckStore = (*PostgresDeckStore)(nil)

// NewPostgresDeckStore creates a deck store on db. A nil logger falls back
// to slog.Default.
func NewPostgresDeckStore(db store.DBTX, logger *slog.Logger) *PostgresDeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_store")),
	}
}

// GetForUser implements store.DeckStore.
func (s *PostgresDeckStore) GetForUser(ctx context.Context, deckID, userID uuid.UUID) (*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.
		Select("id", "user_id", "name", "created_at").
		From("decks").
		Where(sq.Eq{"id": deckID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build deck query: %w", err)
	}

	var deck domain.Deck
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&deck.ID,
		&deck.UserID,
		&deck.Name,
		&deck.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("deck not found",
				slog.String("deck_id", deckID.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrDeckNotFound
		}
		log.Error("failed to get deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", deckID.String()))
		return nil, store.NewStoreError("deck", "get", "query failed", MapError(err))
	}

	return &deck, nil
}
