package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexicard/lexicard-api/internal/events"
)

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// BackfillEventHandler submits a transcription backfill for the deck named
// in every events.TypeCardsCreated event.
type BackfillEventHandler struct {
	factory   *BackfillTaskFactory
	submitter Submitter
	logger    *slog.Logger
}

var _ events.Handler = (*BackfillEventHandler)(nil)

// NewBackfillEventHandler creates the handler.
func NewBackfillEventHandler(factory *BackfillTaskFactory, submitter Submitter, logger *slog.Logger) *BackfillEventHandler {
	return &BackfillEventHandler{
		factory:   factory,
		submitter: submitter,
		logger:    logger.With("component", "backfill_event_handler"),
	}
}

// HandleEvent implements events.Handler. Events of other types are ignored.
func (h *BackfillEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeCardsCreated {
		h.logger.Debug("ignoring event", "event_type", event.Type, "event_id", event.ID)
		return nil
	}

	var payload events.CardsCreated
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
	}
	if payload.CardCount == 0 {
		return nil
	}

	deckID := payload.DeckID
	t, err := h.factory.CreateTask(payload.UserID, &deckID)
	if err != nil {
		return fmt.Errorf("failed to create backfill task: %w", err)
	}

	if err := h.submitter.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit backfill task",
			"error", err,
			"task_id", t.ID(),
			"deck_id", deckID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("backfill task submitted",
		"task_id", t.ID(),
		"deck_id", deckID,
		"event_id", event.ID)
	return nil
}
