package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lexicard/lexicard-api/internal/platform/logger"
)

// InMemoryEmitter dispatches events synchronously to the handlers
// registered for their type.
type InMemoryEmitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

var _ Emitter = (*InMemoryEmitter)(nil)

// NewInMemoryEmitter creates an emitter with no handlers.
func NewInMemoryEmitter(log *slog.Logger) *InMemoryEmitter {
	return &InMemoryEmitter{
		handlers: make(map[string][]Handler),
		logger:   log.With("component", "event_emitter"),
	}
}

// Subscribe registers h for events of eventType.
func (e *InMemoryEmitter) Subscribe(eventType string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[eventType] = append(e.handlers[eventType], h)
}

// EmitEvent implements Emitter. Every handler runs even when an earlier
// one fails; the first error is returned.
func (e *InMemoryEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := append([]Handler(nil), e.handlers[event.Type]...)
	e.mu.RUnlock()

	log := logger.FromContextOrDefault(ctx, e.logger)
	if len(handlers) == 0 {
		log.Debug("no handlers for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var firstErr error
	for i, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			log.Error("event handler failed",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
