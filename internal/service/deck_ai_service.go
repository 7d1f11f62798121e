package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/enrichment"
	"github.com/lexicard/lexicard-api/internal/events"
	"github.com/lexicard/lexicard-api/internal/platform/logger"
	"github.com/lexicard/lexicard-api/internal/store"
	"github.com/lexicard/lexicard-api/internal/synonym"
)

// Limits applied when a caller passes zero or an out-of-range value.
const (
	DefaultBackfillLimit = 50
	MaxBackfillLimit     = 500
	DefaultSynonymLimit  = 10
	DefaultSimilarLimit  = 10
	MaxSimilarLimit      = 50
	DefaultSuggestLimit  = 30

	// deckScanLimit bounds the cards read when matching synonyms against a
	// deck.
	deckScanLimit = 1000
)

// Enricher is the part of enrichment.Service the deck operations use.
type Enricher interface {
	EnrichWord(ctx context.Context, word string) (domain.EnrichmentEntry, error)
	EnrichWordsBatch(ctx context.Context, words []string) ([]domain.EnrichmentEntry, error)
	GetSynonyms(ctx context.Context, word string, limit int) ([]string, error)
	GenerateWordList(ctx context.Context, level, topic string, count int) ([]domain.WordSuggestion, error)
}

// GroupSuggester clusters items into synonym groups. *synonym.Suggester
// satisfies it.
type GroupSuggester interface {
	SuggestGroups(ctx context.Context, items []synonym.Item) ([]domain.SynonymGroup, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EnrichedWord is an enrichment entry plus its pronunciation URL.
type EnrichedWord struct {
	Entry            domain.EnrichmentEntry
	PronunciationURL string
}

// DeckSynonyms is the result of a synonym lookup against a deck.
type DeckSynonyms struct {
	Synonyms    []string
	CardsInDeck []*domain.Card
}

// DeckAIService runs the AI-assisted deck operations.
type DeckAIService struct {
	db           *sql.DB
	decks        store.DeckStore
	cards        store.CardStore
	enricher     Enricher
	suggester    GroupSuggester
	embedder     Embedder
	emitter      events.Emitter
	batchSize    int
	suggestLimit int
	logger       *slog.Logger
}

// DeckAIOption customizes a DeckAIService.
type DeckAIOption func(*DeckAIService)

// WithEmbedder enables embeddings for generated cards and similar-word
// search. Without one, SimilarWords always returns no results.
func WithEmbedder(e Embedder) DeckAIOption {
	return func(s *DeckAIService) { s.embedder = e }
}

// WithEmitter publishes a cards.created event after GenerateWords stores
// cards.
func WithEmitter(e events.Emitter) DeckAIOption {
	return func(s *DeckAIService) { s.emitter = e }
}

// WithBackfillBatchSize sets how many cards BackfillTranscriptions enriches
// per provider call.
func WithBackfillBatchSize(n int) DeckAIOption {
	return func(s *DeckAIService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSuggestLimit sets how many deck cards SuggestSynonymGroups considers
// when the caller passes no limit.
func WithSuggestLimit(n int) DeckAIOption {
	return func(s *DeckAIService) {
		if n > 0 {
			s.suggestLimit = n
		}
	}
}

// NewDeckAIService creates a DeckAIService.
// It returns an error if any of the required dependencies are nil.
func NewDeckAIService(
	db *sql.DB,
	decks store.DeckStore,
	cards store.CardStore,
	enricher Enricher,
	suggester GroupSuggester,
	log *slog.Logger,
	opts ...DeckAIOption,
) (*DeckAIService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if decks == nil {
		return nil, domain.NewValidationError("decks", "cannot be nil", domain.ErrValidation)
	}
	if cards == nil {
		return nil, domain.NewValidationError("cards", "cannot be nil", domain.ErrValidation)
	}
	if enricher == nil {
		return nil, domain.NewValidationError("enricher", "cannot be nil", domain.ErrValidation)
	}
	if suggester == nil {
		return nil, domain.NewValidationError("suggester", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}

	s := &DeckAIService{
		db:           db,
		decks:        decks,
		cards:        cards,
		enricher:     enricher,
		suggester:    suggester,
		batchSize:    10,
		suggestLimit: DefaultSuggestLimit,
		logger:       log.With(slog.String("component", "deck_ai_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateWords asks for a word list and stores it as cards in the deck, all
// in one transaction. It returns the number of cards created.
func (s *DeckAIService) GenerateWords(
	ctx context.Context,
	userID, deckID uuid.UUID,
	level, topic string,
	count int,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.checkDeck(ctx, "generate_words", userID, deckID); err != nil {
		return 0, err
	}

	words, err := s.enricher.GenerateWordList(ctx, level, topic, count)
	if err != nil {
		return 0, NewServiceError("generate_words", "word list generation failed", err)
	}

	cards := make([]*domain.Card, 0, len(words))
	for _, w := range words {
		card, err := domain.NewCard(deckID, w)
		if err != nil {
			log.Warn("skipping generated word",
				slog.String("word", w.Word),
				slog.String("error", err.Error()))
			continue
		}
		card.PronunciationURL = enrichment.PronunciationURL(card.Word)
		card.Embedding = s.embed(ctx, card.Word+": "+card.Translation)
		cards = append(cards, card)
	}
	if len(cards) == 0 {
		log.Info("no usable words generated", slog.String("deck_id", deckID.String()))
		return 0, nil
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.cards.WithTx(tx).CreateMultiple(ctx, cards)
	})
	if err != nil {
		return 0, NewServiceError("generate_words", "failed to store cards", err)
	}

	log.Info("generated cards",
		slog.String("deck_id", deckID.String()),
		slog.Int("requested", count),
		slog.Int("created", len(cards)))

	s.emitCardsCreated(ctx, userID, deckID, len(cards))
	return len(cards), nil
}

// EnrichWord returns the enrichment of a single word.
func (s *DeckAIService) EnrichWord(ctx context.Context, word string) (EnrichedWord, error) {
	entry, err := s.enricher.EnrichWord(ctx, word)
	if err != nil {
		return EnrichedWord{}, err
	}
	return EnrichedWord{Entry: entry, PronunciationURL: enrichment.PronunciationURL(entry.Word)}, nil
}

// EnrichWords enriches several words with batched provider calls. The result
// is aligned with words.
func (s *DeckAIService) EnrichWords(ctx context.Context, words []string) ([]EnrichedWord, error) {
	entries, err := s.enricher.EnrichWordsBatch(ctx, words)
	if err != nil {
		return nil, err
	}
	out := make([]EnrichedWord, len(entries))
	for i, e := range entries {
		out[i] = EnrichedWord{Entry: e, PronunciationURL: enrichment.PronunciationURL(e.Word)}
	}
	return out, nil
}

// BackfillTranscriptions fills in the transcription and pronunciation URL of
// up to limit cards that have none. A nil deckID covers every deck of the
// user. The first enrichment failure stops the run; the cards updated so far
// are kept and counted, and the error is returned only when nothing was
// updated.
func (s *DeckAIService) BackfillTranscriptions(
	ctx context.Context,
	userID uuid.UUID,
	deckID *uuid.UUID,
	limit int,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if deckID != nil {
		if err := s.checkDeck(ctx, "backfill_transcriptions", userID, *deckID); err != nil {
			return 0, err
		}
	}
	if limit <= 0 {
		limit = DefaultBackfillLimit
	}
	limit = min(limit, MaxBackfillLimit)

	cards, err := s.cards.ListMissingTranscription(ctx, userID, deckID, limit)
	if err != nil {
		return 0, NewServiceError("backfill_transcriptions", "failed to list cards", err)
	}

	updated := 0
	for start := 0; start < len(cards); start += s.batchSize {
		chunk := cards[start:min(start+s.batchSize, len(cards))]
		n, err := s.backfillChunk(ctx, chunk)
		updated += n
		if err != nil {
			log.Warn("backfill stopped early",
				slog.Int("updated", updated),
				slog.Int("candidates", len(cards)),
				slog.String("error", err.Error()))
			if updated == 0 {
				return 0, NewServiceError("backfill_transcriptions", "enrichment failed", err)
			}
			return updated, nil
		}
	}

	log.Info("backfilled transcriptions",
		slog.Int("updated", updated),
		slog.Int("candidates", len(cards)))
	return updated, nil
}

func (s *DeckAIService) backfillChunk(ctx context.Context, cards []*domain.Card) (int, error) {
	words := make([]string, len(cards))
	for i, c := range cards {
		words[i] = c.Word
	}

	entries, err := s.enricher.EnrichWordsBatch(ctx, words)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i, c := range cards {
		transcription := entries[i].Transcription
		if transcription == "" {
			continue
		}
		err := s.cards.UpdatePronunciation(ctx, c.ID, transcription, enrichment.PronunciationURL(c.Word))
		if errors.Is(err, store.ErrCardNotFound) {
			continue
		}
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// DeckSynonyms looks up synonyms of word and reports which of them are
// already cards in the deck. A blank word yields an empty result.
func (s *DeckAIService) DeckSynonyms(
	ctx context.Context,
	userID, deckID uuid.UUID,
	word string,
	limit int,
) (DeckSynonyms, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return DeckSynonyms{Synonyms: []string{}, CardsInDeck: []*domain.Card{}}, nil
	}
	if err := s.checkDeck(ctx, "deck_synonyms", userID, deckID); err != nil {
		return DeckSynonyms{}, err
	}
	if limit <= 0 {
		limit = DefaultSynonymLimit
	}

	syns, err := s.enricher.GetSynonyms(ctx, word, limit)
	if err != nil {
		return DeckSynonyms{}, NewServiceError("deck_synonyms", "synonym lookup failed", err)
	}

	wanted := make(map[string]struct{}, len(syns))
	for _, w := range syns {
		wanted[enrichment.NormalizeKey(w)] = struct{}{}
	}

	cards, err := s.cards.ListByDeck(ctx, deckID, deckScanLimit)
	if err != nil {
		return DeckSynonyms{}, NewServiceError("deck_synonyms", "failed to list deck cards", err)
	}

	inDeck := []*domain.Card{}
	for _, c := range cards {
		if _, ok := wanted[enrichment.NormalizeKey(c.Word)]; ok {
			inDeck = append(inDeck, c)
		}
	}
	if syns == nil {
		syns = []string{}
	}
	return DeckSynonyms{Synonyms: syns, CardsInDeck: inDeck}, nil
}

// SuggestSynonymGroups clusters the first limit cards of the deck into
// groups of synonyms. Group item IDs are card IDs.
func (s *DeckAIService) SuggestSynonymGroups(
	ctx context.Context,
	userID, deckID uuid.UUID,
	limit int,
) ([]domain.SynonymGroup, error) {
	if err := s.checkDeck(ctx, "suggest_synonym_groups", userID, deckID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.suggestLimit
	}

	cards, err := s.cards.ListByDeck(ctx, deckID, limit)
	if err != nil {
		return nil, NewServiceError("suggest_synonym_groups", "failed to list deck cards", err)
	}

	items := make([]synonym.Item, len(cards))
	for i, c := range cards {
		items[i] = synonym.Item{ID: c.ID.String(), Word: c.Word}
	}

	groups, err := s.suggester.SuggestGroups(ctx, items)
	if err != nil {
		return nil, NewServiceError("suggest_synonym_groups", "synonym lookup failed", err)
	}
	if groups == nil {
		groups = []domain.SynonymGroup{}
	}
	return groups, nil
}

// ApplySynonymGroups gives every group of at least two distinct cards a
// fresh synonym group id, all in one transaction. Groups with fewer cards
// are skipped; when none remain ErrNothingToApply is returned. It returns
// the number of cards updated.
func (s *DeckAIService) ApplySynonymGroups(
	ctx context.Context,
	userID, deckID uuid.UUID,
	groups [][]uuid.UUID,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.checkDeck(ctx, "apply_synonym_groups", userID, deckID); err != nil {
		return 0, err
	}

	valid := make([][]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		ids := distinctIDs(g)
		if len(ids) < 2 {
			log.Debug("skipping synonym group", slog.Int("cards", len(ids)))
			continue
		}
		valid = append(valid, ids)
	}
	if len(valid) == 0 {
		return 0, NewServiceError("apply_synonym_groups", "invalid request", ErrNothingToApply)
	}

	var updated int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txCards := s.cards.WithTx(tx)
		for _, ids := range valid {
			n, err := txCards.AssignSynonymGroup(ctx, deckID, ids, uuid.New())
			if err != nil {
				return err
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return 0, NewServiceError("apply_synonym_groups", "failed to assign groups", err)
	}

	log.Info("applied synonym groups",
		slog.String("deck_id", deckID.String()),
		slog.Int("groups", len(valid)),
		slog.Int64("cards_updated", updated))
	return updated, nil
}

// SimilarWords ranks the user's cards by embedding distance to word. A
// non-nil deckID excludes that deck. Without an embedder, or when embedding
// fails, the result is empty.
func (s *DeckAIService) SimilarWords(
	ctx context.Context,
	userID uuid.UUID,
	word string,
	deckID *uuid.UUID,
	limit int,
) ([]store.SimilarCard, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return []store.SimilarCard{}, nil
	}
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	limit = min(limit, MaxSimilarLimit)

	vec := s.embed(ctx, word)
	if vec == nil {
		return []store.SimilarCard{}, nil
	}

	similar, err := s.cards.FindSimilar(ctx, userID, vec, deckID, limit)
	if err != nil {
		return nil, NewServiceError("similar_words", "similarity search failed", err)
	}
	if similar == nil {
		similar = []store.SimilarCard{}
	}
	return similar, nil
}

func (s *DeckAIService) checkDeck(ctx context.Context, op string, userID, deckID uuid.UUID) error {
	if _, err := s.decks.GetForUser(ctx, deckID, userID); err != nil {
		return NewServiceError(op, "deck lookup failed", err)
	}
	return nil
}

// embed returns nil when no embedder is configured or the call fails.
func (s *DeckAIService) embed(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("embedding failed",
			slog.String("error", err.Error()))
		return nil
	}
	return vec
}

func (s *DeckAIService) emitCardsCreated(ctx context.Context, userID, deckID uuid.UUID, count int) {
	if s.emitter == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewCardsCreated(userID, deckID, count)
	if err != nil {
		log.Error("failed to build cards.created event", slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit cards.created event",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}

func distinctIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
