package task

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory TaskStore.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID]*Record)}
}

func (s *memStore) SaveTask(_ context.Context, t Task) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.records[t.ID()] = &Record{
		ID: t.ID(), Type: t.Type(), Payload: t.Payload(), Status: t.Status(),
		CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (s *memStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &rec
}

func (s *memStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status TaskStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.Status = status
		rec.ErrorMessage = msg
		rec.UpdatedAt = time.Now()
	}
	return nil
}

func (s *memStore) byStatus(status TaskStatus) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out
}

func (s *memStore) GetPendingTasks(context.Context) ([]Record, error) {
	return s.byStatus(TaskStatusPending), nil
}

func (s *memStore) GetProcessingTasks(context.Context, time.Duration) ([]Record, error) {
	return s.byStatus(TaskStatusProcessing), nil
}

func (s *memStore) WithTx(*sql.Tx) TaskStore { return s }

func (s *memStore) status(id uuid.UUID) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.Status
	}
	return ""
}

func (s *memStore) errorMessage(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.ErrorMessage
	}
	return ""
}

// funcTask is a Task whose Execute calls fn.
type funcTask struct {
	id uuid.UUID
	fn func(ctx context.Context) error
}

func newFuncTask(fn func(ctx context.Context) error) *funcTask {
	return &funcTask{id: uuid.New(), fn: fn}
}

func (t *funcTask) ID() uuid.UUID      { return t.id }
func (t *funcTask) Type() string       { return "func" }
func (t *funcTask) Payload() []byte    { return []byte(`{}`) }
func (t *funcTask) Status() TaskStatus { return TaskStatusPending }
func (t *funcTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordTask(taskType, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[taskType+"/"+status]++
}

func (r *countingRecorder) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

type fakeBackfiller struct {
	mu      sync.Mutex
	calls   []BackfillPayload
	updated int
	err     error
}

func (f *fakeBackfiller) BackfillTranscriptions(_ context.Context, userID uuid.UUID, deckID *uuid.UUID, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, BackfillPayload{UserID: userID, DeckID: deckID, Limit: limit})
	return f.updated, f.err
}

var errBoom = errors.New("boom")
