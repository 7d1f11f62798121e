package task

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicard/lexicard-api/internal/events"
)

func TestBackfillTaskExecute(t *testing.T) {
	backfiller := &fakeBackfiller{updated: 4}
	factory := NewBackfillTaskFactory(backfiller, 25, discardLogger())
	userID, deckID := uuid.New(), uuid.New()

	task, err := factory.CreateTask(userID, &deckID)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeBackfillTranscriptions, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())

	require.NoError(t, task.Execute(context.Background()))
	require.Len(t, backfiller.calls, 1)
	assert.Equal(t, userID, backfiller.calls[0].UserID)
	assert.Equal(t, deckID, *backfiller.calls[0].DeckID)
	assert.Equal(t, 25, backfiller.calls[0].Limit)

	backfiller.err = errBoom
	assert.ErrorIs(t, task.Execute(context.Background()), errBoom)
}

func TestBackfillTaskFactoryRestore(t *testing.T) {
	factory := NewBackfillTaskFactory(&fakeBackfiller{}, 0, discardLogger())
	userID := uuid.New()

	original, err := factory.CreateTask(userID, nil)
	require.NoError(t, err)

	restored, err := factory.Restore(Record{ID: original.ID(), Type: original.Type(), Payload: original.Payload()})
	require.NoError(t, err)
	assert.Equal(t, original.ID(), restored.ID())
	assert.JSONEq(t, string(original.Payload()), string(restored.Payload()))

	noLimit, err := factory.Restore(Record{ID: uuid.New(), Payload: []byte(`{"user_id":"` + userID.String() + `"}`)})
	require.NoError(t, err)
	assert.Equal(t, DefaultBackfillLimit, noLimit.(*BackfillTask).payload.Limit)

	_, err = factory.Restore(Record{Payload: []byte(`not json`)})
	assert.Error(t, err)
	_, err = factory.Restore(Record{Payload: []byte(`{}`)})
	assert.Error(t, err)

	_, err = factory.CreateTask(uuid.Nil, nil)
	assert.Error(t, err)
}

type submitRecorder struct {
	tasks []Task
	err   error
}

func (s *submitRecorder) Submit(_ context.Context, task Task) error {
	s.tasks = append(s.tasks, task)
	return s.err
}

func TestBackfillEventHandler(t *testing.T) {
	factory := NewBackfillTaskFactory(&fakeBackfiller{}, 0, discardLogger())
	submitter := &submitRecorder{}
	handler := NewBackfillEventHandler(factory, submitter, discardLogger())
	userID, deckID := uuid.New(), uuid.New()

	event, err := events.NewCardsCreated(userID, deckID, 3)
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvent(context.Background(), event))

	require.Len(t, submitter.tasks, 1)
	submitted := submitter.tasks[0].(*BackfillTask)
	assert.Equal(t, userID, submitted.payload.UserID)
	assert.Equal(t, deckID, *submitted.payload.DeckID)

	t.Run("other types and empty batches are ignored", func(t *testing.T) {
		other, err := events.NewEvent("deck.deleted", nil)
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(context.Background(), other))

		empty, err := events.NewCardsCreated(userID, deckID, 0)
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(context.Background(), empty))

		assert.Len(t, submitter.tasks, 1)
	})

	t.Run("submit error", func(t *testing.T) {
		failing := NewBackfillEventHandler(factory, &submitRecorder{err: errBoom}, discardLogger())
		assert.ErrorIs(t, failing.HandleEvent(context.Background(), event), errBoom)
	})

	t.Run("bad payload", func(t *testing.T) {
		bad := &events.Event{Type: events.TypeCardsCreated, Payload: []byte(`[`)}
		assert.Error(t, handler.HandleEvent(context.Background(), bad))
	})
}
