package generation

import (
	"fmt"
	"log/slog"
	"sync"
)

// Rotation is the ordered model list of one provider together with the
// cursor that selects the current model. One Rotation is shared by every
// request that uses the provider, so a model that failed for one caller is
// skipped by the next.
//
// The cursor always satisfies 0 <= index < len(models).
type Rotation struct {
	provider string
	models   []string
	mu       sync.Locker
	index    int
	logger   *slog.Logger
	recorder Recorder
}

// RotationOption customizes a Rotation.
type RotationOption func(*Rotation)

// WithoutLocking makes cursor updates unsynchronized. Concurrent callers may
// then observe lost updates, but the update rule is unchanged and every model
// is still reachable.
func WithoutLocking() RotationOption {
	return func(r *Rotation) {
		r.mu = noopLocker{}
	}
}

// WithRotationLogger sets the logger used to report transitions.
func WithRotationLogger(logger *slog.Logger) RotationOption {
	return func(r *Rotation) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRotationRecorder sets the metrics sink for transitions.
func WithRotationRecorder(rec Recorder) RotationOption {
	return func(r *Rotation) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRotation creates a rotation over models starting at index 0.
// It returns ErrNotConfigured when models is empty.
func NewRotation(provider string, models []string, opts ...RotationOption) (*Rotation, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: %s has no models", ErrNotConfigured, provider)
	}

	r := &Rotation{
		provider: provider,
		models:   append([]string(nil), models...),
		mu:       &sync.Mutex{},
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "model_rotation"), slog.String("provider", provider))

	return r, nil
}

// Provider returns the provider name the rotation belongs to.
func (r *Rotation) Provider() string {
	return r.provider
}

// Len returns the number of models.
func (r *Rotation) Len() int {
	return len(r.models)
}

// Models returns a copy of the model list.
func (r *Rotation) Models() []string {
	return append([]string(nil), r.models...)
}

// Current returns the model the cursor points at.
func (r *Rotation) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.models[r.index]
}

// Index returns the cursor position.
func (r *Rotation) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Advance moves the cursor to (index+1) mod len and returns the new model.
func (r *Rotation) Advance() string {
	r.mu.Lock()
	from := r.models[r.index]
	r.index = (r.index + 1) % len(r.models)
	to := r.models[r.index]
	r.mu.Unlock()

	r.logger.Info("switching model", slog.String("from", from), slog.String("to", to))
	r.recorder.ObserveRotation(r.provider, from, to)
	return to
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}
