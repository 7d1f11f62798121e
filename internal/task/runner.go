package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lexicard/lexicard-api/internal/platform/logger"
)

// ErrUnknownTaskType is recorded for persisted tasks no Restorer handles.
var ErrUnknownTaskType = errors.New("no restorer registered for task type")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks.
	// If zero, defaults to 5 minutes.
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// RunnerOption configures a TaskRunner.
type RunnerOption func(*TaskRunner)

// WithRecorder reports every processed task to rec.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *TaskRunner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// TaskRunner persists submitted tasks and executes them on a WorkerPool.
type TaskRunner struct {
	store     TaskStore
	queue     *TaskQueue
	pool      *WorkerPool
	config    TaskRunnerConfig
	logger    *slog.Logger
	recorder  Recorder
	restorers map[string]Restorer

	mu         sync.RWMutex
	errHandler func(task Task, err error)

	monitorCtx    context.Context
	monitorCancel context.CancelFunc
	monitorWG     sync.WaitGroup
}

// NewTaskRunner creates a TaskRunner. Call Start to begin processing.
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger, opts ...RunnerOption) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())
	r := &TaskRunner{
		store:         store,
		queue:         NewTaskQueue(config.QueueSize, logger),
		config:        config,
		logger:        logger,
		recorder:      nopRecorder{},
		restorers:     make(map[string]Restorer),
		monitorCtx:    ctx,
		monitorCancel: cancel,
	}
	r.errHandler = func(task Task, err error) {
		logger.Error("task execution failed",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterRestorer sets the function used to rebuild recovered tasks of
// taskType. Must be called before Start.
func (r *TaskRunner) RegisterRestorer(taskType string, restore Restorer) {
	r.restorers[taskType] = restore
}

// SetErrorHandler replaces the handler called when a task fails.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

// Submit persists task and queues it for execution.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	if err := r.queue.Enqueue(task); err != nil {
		// The task stays pending in the store and is picked up on recovery.
		return fmt.Errorf("failed to queue task: %w", err)
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the stuck
// task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(context.Background()); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.monitorWG.Add(1)
	go r.stuckTaskMonitor()
	return nil
}

// Stop shuts the runner down, waiting for tasks in progress. Queued tasks
// remain pending in the store.
func (r *TaskRunner) Stop() {
	r.monitorCancel()
	r.monitorWG.Wait()
	r.pool.Stop()
	r.queue.Close()
}

// Recover requeues pending tasks and resets tasks left in processing by a
// previous run.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
	for _, rec := range processing {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
	return nil
}

func (r *TaskRunner) requeue(ctx context.Context, rec Record) {
	restore, ok := r.restorers[rec.Type]
	if !ok {
		r.markFailed(ctx, rec, ErrUnknownTaskType)
		return
	}

	t, err := restore(rec)
	if err != nil {
		r.markFailed(ctx, rec, err)
		return
	}

	if err := r.queue.Enqueue(t); err != nil {
		r.logger.Error("failed to requeue task",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
	}
}

func (r *TaskRunner) markFailed(ctx context.Context, rec Record, cause error) {
	r.logger.Error("cannot restore task",
		"task_id", rec.ID,
		"task_type", rec.Type,
		"error", cause)
	if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, cause.Error()); err != nil {
		r.logger.Error("failed to mark task failed", "task_id", rec.ID, "error", err)
	}
	r.recorder.RecordTask(rec.Type, string(TaskStatusFailed))
}

// processTask runs one task. It uses a fresh context so that stopping the
// pool lets the task finish.
func (r *TaskRunner) processTask(_ context.Context, task Task, workerID int) {
	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)
	ctx := logger.WithLogger(context.Background(), log)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Info("processing task")
	started := time.Now()

	if err := task.Execute(ctx); err != nil {
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}
		r.recorder.RecordTask(task.Type(), string(TaskStatusFailed))

		r.mu.RLock()
		handler := r.errHandler
		r.mu.RUnlock()
		handler(task, err)
		return
	}

	log.Info("task completed", "duration", time.Since(started))
	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCompleted, ""); err != nil {
		log.Error("failed to update task status to completed", "error", err)
	}
	r.recorder.RecordTask(task.Type(), string(TaskStatusCompleted))
}

// stuckTaskMonitor periodically resets tasks that have been processing for
// longer than StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.monitorWG.Done()

	if r.config.StuckTaskAge <= 0 {
		return
	}

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.monitorCtx.Done():
			return
		case <-ticker.C:
			r.resetStuckTasks(r.monitorCtx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck tasks", "count", len(stuck))
	for _, rec := range stuck {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending,
			"reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
}
