package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/events"
	"github.com/lexicard/lexicard-api/internal/store"
	"github.com/lexicard/lexicard-api/internal/synonym"
)

// MockDeckStore mocks store.DeckStore
type MockDeckStore struct {
	mock.Mock
}

func (m *MockDeckStore) GetForUser(ctx context.Context, deckID, userID uuid.UUID) (*domain.Deck, error) {
	args := m.Called(ctx, deckID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deck), args.Error(1)
}

// MockCardStore mocks store.CardStore. WithTx returns the same mock so
// expectations hold inside transactions.
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	args := m.Called(ctx, cards)
	return args.Error(0)
}

func (m *MockCardStore) ListByDeck(ctx context.Context, deckID uuid.UUID, limit int) ([]*domain.Card, error) {
	args := m.Called(ctx, deckID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Card), args.Error(1)
}

func (m *MockCardStore) ListMissingTranscription(
	ctx context.Context,
	userID uuid.UUID,
	deckID *uuid.UUID,
	limit int,
) ([]*domain.Card, error) {
	args := m.Called(ctx, userID, deckID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Card), args.Error(1)
}

func (m *MockCardStore) UpdatePronunciation(ctx context.Context, id uuid.UUID, transcription, url string) error {
	args := m.Called(ctx, id, transcription, url)
	return args.Error(0)
}

func (m *MockCardStore) AssignSynonymGroup(
	ctx context.Context,
	deckID uuid.UUID,
	cardIDs []uuid.UUID,
	groupID uuid.UUID,
) (int64, error) {
	args := m.Called(ctx, deckID, cardIDs, groupID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCardStore) FindSimilar(
	ctx context.Context,
	userID uuid.UUID,
	embedding []float32,
	excludeDeckID *uuid.UUID,
	limit int,
) ([]store.SimilarCard, error) {
	args := m.Called(ctx, userID, embedding, excludeDeckID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.SimilarCard), args.Error(1)
}

func (m *MockCardStore) WithTx(*sql.Tx) store.CardStore {
	return m
}

// fakeEnricher serves canned replies keyed by word.
type fakeEnricher struct {
	mu sync.Mutex

	entries    map[string]domain.EnrichmentEntry
	synonyms   []string
	words      []domain.WordSuggestion
	batchErrAt int // 1-based batch call that fails; 0 never
	err        error

	batchCalls [][]string
}

func (f *fakeEnricher) EnrichWord(_ context.Context, word string) (domain.EnrichmentEntry, error) {
	if f.err != nil {
		return domain.EnrichmentEntry{}, f.err
	}
	e := f.entries[word]
	e.Word = word
	return e, nil
}

func (f *fakeEnricher) EnrichWordsBatch(_ context.Context, words []string) ([]domain.EnrichmentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, words)
	if f.batchErrAt > 0 && len(f.batchCalls) >= f.batchErrAt {
		return nil, f.err
	}
	out := make([]domain.EnrichmentEntry, len(words))
	for i, w := range words {
		out[i] = f.entries[w]
		out[i].Word = w
	}
	return out, nil
}

func (f *fakeEnricher) GetSynonyms(context.Context, string, int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.synonyms, nil
}

func (f *fakeEnricher) GenerateWordList(context.Context, string, string, int) ([]domain.WordSuggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.words, nil
}

type fakeSuggester struct {
	groups []domain.SynonymGroup
	err    error
	got    []synonym.Item
}

func (f *fakeSuggester) SuggestGroups(_ context.Context, items []synonym.Item) ([]domain.SynonymGroup, error) {
	f.got = items
	return f.groups, f.err
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	return f.vec, f.err
}

type recordingEmitter struct {
	events []*events.Event
	err    error
}

func (r *recordingEmitter) EmitEvent(_ context.Context, e *events.Event) error {
	r.events = append(r.events, e)
	return r.err
}
