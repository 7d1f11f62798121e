package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultBackfillLimit caps the cards handled by one backfill task.
const DefaultBackfillLimit = 200

// Backfiller fills in missing transcriptions and pronunciation URLs.
type Backfiller interface {
	BackfillTranscriptions(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID, limit int) (int, error)
}

// BackfillPayload is the persisted payload of a backfill task.
type BackfillPayload struct {
	UserID uuid.UUID  `json:"user_id"`
	DeckID *uuid.UUID `json:"deck_id,omitempty"`
	Limit  int        `json:"limit"`
}

// BackfillTask runs one transcription backfill for a user, optionally
// restricted to a deck.
type BackfillTask struct {
	id         uuid.UUID
	payload    BackfillPayload
	status     TaskStatus
	backfiller Backfiller
	logger     *slog.Logger
}

var _ Task = (*BackfillTask)(nil)

// ID implements Task.
func (t *BackfillTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *BackfillTask) Type() string { return TaskTypeBackfillTranscriptions }

// Status implements Task.
func (t *BackfillTask) Status() TaskStatus { return t.status }

// Payload implements Task.
func (t *BackfillTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		// BackfillPayload only holds UUIDs and an int.
		return nil
	}
	return data
}

// Execute implements Task.
func (t *BackfillTask) Execute(ctx context.Context) error {
	updated, err := t.backfiller.BackfillTranscriptions(ctx, t.payload.UserID, t.payload.DeckID, t.payload.Limit)
	if err != nil {
		return fmt.Errorf("backfill transcriptions: %w", err)
	}
	t.logger.Info("backfill finished",
		"task_id", t.id,
		"user_id", t.payload.UserID,
		"updated", updated)
	return nil
}

// BackfillTaskFactory creates BackfillTasks and restores persisted ones.
type BackfillTaskFactory struct {
	backfiller Backfiller
	limit      int
	logger     *slog.Logger
}

// NewBackfillTaskFactory creates a factory. A non-positive limit uses
// DefaultBackfillLimit.
func NewBackfillTaskFactory(backfiller Backfiller, limit int, logger *slog.Logger) *BackfillTaskFactory {
	if limit <= 0 {
		limit = DefaultBackfillLimit
	}
	return &BackfillTaskFactory{
		backfiller: backfiller,
		limit:      limit,
		logger:     logger.With("component", "backfill_task_factory"),
	}
}

// CreateTask creates a pending backfill task.
func (f *BackfillTaskFactory) CreateTask(userID uuid.UUID, deckID *uuid.UUID) (*BackfillTask, error) {
	if userID == uuid.Nil {
		return nil, errors.New("backfill task requires a user ID")
	}
	return &BackfillTask{
		id:         uuid.New(),
		payload:    BackfillPayload{UserID: userID, DeckID: deckID, Limit: f.limit},
		status:     TaskStatusPending,
		backfiller: f.backfiller,
		logger:     f.logger,
	}, nil
}

// Restore implements Restorer for TaskTypeBackfillTranscriptions.
func (f *BackfillTaskFactory) Restore(rec Record) (Task, error) {
	var p BackfillPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode backfill payload: %w", err)
	}
	if p.UserID == uuid.Nil {
		return nil, errors.New("backfill payload has no user ID")
	}
	if p.Limit <= 0 {
		p.Limit = f.limit
	}
	return &BackfillTask{
		id:         rec.ID,
		payload:    p,
		status:     TaskStatusPending,
		backfiller: f.backfiller,
		logger:     f.logger,
	}, nil
}
