package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeBackfillTranscriptions fills in missing transcriptions for a deck.
const TaskTypeBackfillTranscriptions = "backfill_transcriptions"

// Task represents a unit of background work to be processed
type Task interface {
	ID() uuid.UUID
	Type() string
	// Payload returns the task data as JSON.
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue.
type TaskQueueWriter interface {
	// Enqueue adds a task without blocking. Returns ErrQueueFull or
	// ErrQueueClosed when the task cannot be accepted.
	Enqueue(task Task) error
	Close()
}

// Record is a persisted task as loaded back from a TaskStore.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Restorer rebuilds an executable Task from a persisted record.
type Restorer func(rec Record) (Task, error)

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error

	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks returns every task with "pending" status.
	GetPendingTasks(ctx context.Context) ([]Record, error)

	// GetProcessingTasks returns tasks with "processing" status. A non-zero
	// olderThan limits the result to tasks that have not been updated
	// within that duration.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)

	WithTx(tx *sql.Tx) TaskStore
}

// Recorder receives the outcome of every processed task.
type Recorder interface {
	RecordTask(taskType, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTask(string, string) {}
