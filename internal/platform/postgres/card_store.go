package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/platform/logger"
	"github.com/lexicard/lexicard-api/internal/store"
)

// cardColumns are selected by every card query, in scanCard order.
var cardColumns = []string{
	"c.id",
	"c.deck_id",
	"c.word",
	"c.translation",
	"c.example",
	"c.transcription",
	"c.pronunciation_url",
	"c.part_of_speech",
	"c.synonym_group_id",
	"c.created_at",
}

// PostgresCardStore implements store.CardStore.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.CardStore = (*PostgresCardStore)(nil)

// NewPostgresCardStore creates a card store on db. A nil logger falls back
// to slog.Default.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// WithTx implements store.CardStore.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

// CreateMultiple implements store.CardStore. Every card is validated before
// anything is written.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	insert := psql.Insert("cards").Columns(
		"id",
		"deck_id",
		"word",
		"translation",
		"example",
		"transcription",
		"pronunciation_url",
		"part_of_speech",
		"embedding",
		"created_at",
	)
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			log.Warn("card validation failed during create",
				slog.String("error", err.Error()),
				slog.String("card_id", c.ID.String()))
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		insert = insert.Values(
			c.ID,
			c.DeckID,
			c.Word,
			c.Translation,
			c.Example,
			c.Transcription,
			c.PronunciationURL,
			string(c.PartOfSpeech),
			vectorValue(c.Embedding),
			c.CreatedAt,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build card insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to create cards",
			slog.String("error", err.Error()),
			slog.Int("card_count", len(cards)))
		return store.NewStoreError("card", "create", "insert failed", MapError(err))
	}

	log.Debug("cards created", slog.Int("card_count", len(cards)))
	return nil
}

// ListByDeck implements store.CardStore.
func (s *PostgresCardStore) ListByDeck(ctx context.Context, deckID uuid.UUID, limit int) ([]*domain.Card, error) {
	q := psql.Select(cardColumns...).
		From("cards c").
		Where(sq.Eq{"c.deck_id": deckID}).
		OrderBy("c.created_at ASC", "c.id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryCards(ctx, "list_by_deck", q)
}

// ListMissingTranscription implements store.CardStore.
func (s *PostgresCardStore) ListMissingTranscription(
	ctx context.Context,
	userID uuid.UUID,
	deckID *uuid.UUID,
	limit int,
) ([]*domain.Card, error) {
	q := psql.Select(cardColumns...).
		From("cards c").
		Join("decks d ON d.id = c.deck_id").
		Where(sq.Eq{"d.user_id": userID}).
		Where(sq.Eq{"c.transcription": ""}).
		OrderBy("c.created_at ASC", "c.id ASC")
	if deckID != nil {
		q = q.Where(sq.Eq{"c.deck_id": *deckID})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryCards(ctx, "list_missing_transcription", q)
}

// UpdatePronunciation implements store.CardStore.
func (s *PostgresCardStore) UpdatePronunciation(ctx context.Context, id uuid.UUID, transcription, url string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Update("cards").
		Set("transcription", transcription).
		Set("pronunciation_url", url).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build pronunciation update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update pronunciation",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return store.NewStoreError("card", "update", "pronunciation update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrCardNotFound)
}

// AssignSynonymGroup implements store.CardStore.
func (s *PostgresCardStore) AssignSynonymGroup(
	ctx context.Context,
	deckID uuid.UUID,
	cardIDs []uuid.UUID,
	groupID uuid.UUID,
) (int64, error) {
	if len(cardIDs) == 0 {
		return 0, nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Update("cards").
		Set("synonym_group_id", groupID).
		Where(sq.Eq{"deck_id": deckID}).
		Where(sq.Eq{"id": cardIDs}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build synonym group update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to assign synonym group",
			slog.String("error", err.Error()),
			slog.String("deck_id", deckID.String()),
			slog.String("group_id", groupID.String()))
		return 0, store.NewStoreError("card", "update", "synonym group update failed", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// FindSimilar implements store.CardStore. Distance is pgvector's cosine
// distance, smaller is closer.
func (s *PostgresCardStore) FindSimilar(
	ctx context.Context,
	userID uuid.UUID,
	embedding []float32,
	excludeDeckID *uuid.UUID,
	limit int,
) ([]store.SimilarCard, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)
	vec := vectorLiteral(embedding)

	q := psql.Select(cardColumns...).
		Column(sq.Expr("c.embedding <=> ?::vector AS distance", vec)).
		From("cards c").
		Join("decks d ON d.id = c.deck_id").
		Where(sq.Eq{"d.user_id": userID}).
		Where(sq.NotEq{"c.embedding": nil}).
		OrderBy("distance ASC")
	if excludeDeckID != nil {
		q = q.Where(sq.NotEq{"c.deck_id": *excludeDeckID})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build similarity query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query similar cards", slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", "find_similar", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []store.SimilarCard
	for rows.Next() {
		var sc store.SimilarCard
		var pos string
		var group uuid.NullUUID
		if err := rows.Scan(
			&sc.Card.ID,
			&sc.Card.DeckID,
			&sc.Card.Word,
			&sc.Card.Translation,
			&sc.Card.Example,
			&sc.Card.Transcription,
			&sc.Card.PronunciationURL,
			&pos,
			&group,
			&sc.Card.CreatedAt,
			&sc.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan similar card: %w", err)
		}
		finishCard(&sc.Card, pos, group)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar cards: %w", err)
	}
	return out, nil
}

func (s *PostgresCardStore) queryCards(ctx context.Context, op string, q sq.SelectBuilder) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("card query failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", op, "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

func scanCard(rows *sql.Rows) (*domain.Card, error) {
	var c domain.Card
	var pos string
	var group uuid.NullUUID
	if err := rows.Scan(
		&c.ID,
		&c.DeckID,
		&c.Word,
		&c.Translation,
		&c.Example,
		&c.Transcription,
		&c.PronunciationURL,
		&pos,
		&group,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	finishCard(&c, pos, group)
	return &c, nil
}

func finishCard(c *domain.Card, pos string, group uuid.NullUUID) {
	c.PartOfSpeech = domain.PartOfSpeech(pos)
	if group.Valid {
		id := group.UUID
		c.SynonymGroupID = &id
	}
}
