//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/store"
	"github.com/lexicard/lexicard-api/internal/testdb"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return testdb.Open(t, Migrations())
}

func seedDeck(t *testing.T, db *sql.DB) (userID, deckID uuid.UUID) {
	t.Helper()
	userID, deckID = uuid.New(), uuid.New()
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`,
		userID, userID.String()+"@example.com")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO decks (id, user_id, name) VALUES ($1, $2, $3)`,
		deckID, userID, "test deck")
	require.NoError(t, err)
	return userID, deckID
}

func unitVector(i int) []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	v[i] = 1
	return v
}

func TestIntegrationCardLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID, deckID := seedDeck(t, db)
	_, otherDeck := seedDeck(t, db)

	decks := NewPostgresDeckStore(db, nil)
	cards := NewPostgresCardStore(db, nil)

	deck, err := decks.GetForUser(ctx, deckID, userID)
	require.NoError(t, err)
	assert.Equal(t, "test deck", deck.Name)

	_, err = decks.GetForUser(ctx, otherDeck, userID)
	assert.ErrorIs(t, err, store.ErrDeckNotFound)

	big, err := domain.NewCard(deckID, domain.WordSuggestion{Word: "big"})
	require.NoError(t, err)
	big.Embedding = unitVector(0)
	large, err := domain.NewCard(deckID, domain.WordSuggestion{Word: "large", Transcription: "lɑːdʒ"})
	require.NoError(t, err)
	large.Embedding = unitVector(1)

	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return cards.WithTx(tx).CreateMultiple(ctx, []*domain.Card{big, large})
	})
	require.NoError(t, err)

	listed, err := cards.ListByDeck(ctx, deckID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	missing, err := cards.ListMissingTranscription(ctx, userID, &deckID, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "big", missing[0].Word)

	require.NoError(t, cards.UpdatePronunciation(ctx, big.ID, "bɪɡ", "https://example.com/big"))
	missing, err = cards.ListMissingTranscription(ctx, userID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	group := uuid.New()
	n, err := cards.AssignSynonymGroup(ctx, deckID, []uuid.UUID{big.ID, large.ID}, group)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	similar, err := cards.FindSimilar(ctx, userID, unitVector(0), nil, 2)
	require.NoError(t, err)
	require.Len(t, similar, 2)
	assert.Equal(t, big.ID, similar[0].Card.ID)
	require.NotNil(t, similar[0].Card.SynonymGroupID)
	assert.Equal(t, group, *similar[0].Card.SynonymGroupID)

	excluded, err := cards.FindSimilar(ctx, userID, unitVector(0), &deckID, 2)
	require.NoError(t, err)
	assert.Empty(t, excluded)
}

func TestIntegrationTaskStoreInTransaction(t *testing.T) {
	db := setupTestDB(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		tasks := NewPostgresTaskStore(tx, nil)

		pending, err := tasks.GetPendingTasks(ctx)
		require.NoError(t, err)
		before := len(pending)

		rec := stubTask{id: uuid.New()}
		require.NoError(t, tasks.SaveTask(ctx, rec))

		pending, err = tasks.GetPendingTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, pending, before+1)
	})
}
