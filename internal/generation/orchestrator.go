package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexicard/lexicard-api/internal/platform/logger"
	"github.com/lexicard/lexicard-api/internal/redact"
)

// Backend pairs a provider with its model rotation. A backend with a nil
// Provider or Rotation is kept in the priority list but reported as not
// configured when reached.
type Backend struct {
	Name     string
	Provider Provider
	Rotation *Rotation
}

func (b Backend) name() string {
	if b.Provider != nil {
		return b.Provider.Name()
	}
	return b.Name
}

func (b Backend) configured() bool {
	return b.Provider != nil && b.Rotation != nil && b.Rotation.Len() > 0
}

// Orchestrator produces text from the first backend that succeeds, rotating
// through each backend's models before falling back to the next backend.
type Orchestrator struct {
	backends    []Backend
	callTimeout time.Duration
	logger      *slog.Logger
	recorder    Recorder
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithCallTimeout bounds every individual provider call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.callTimeout = d
	}
}

// WithLogger sets the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the metrics sink for provider calls.
func WithRecorder(rec Recorder) Option {
	return func(o *Orchestrator) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

// NewOrchestrator creates an orchestrator that tries backends in the given
// order.
func NewOrchestrator(backends []Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backends: append([]Backend(nil), backends...),
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(slog.String("component", "llm_orchestrator"))
	return o
}

// Generate returns the reply text for prompt.
//
// For each backend in priority order it calls the current model; on any
// failure it advances the rotation and tries again, up to once per model.
// When every model of a backend failed, the next backend is tried. When all
// backends failed the returned error is an *ExhaustedError naming each
// provider's failure. No partial text is ever returned with an error.
//
// Provider calls are not interrupted when ctx is cancelled.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.FromContextOrDefault(ctx, o.logger)

	if len(o.backends) == 0 {
		return "", fmt.Errorf("%w: no providers", ErrNotConfigured)
	}

	failures := make([]error, 0, len(o.backends))
	for _, b := range o.backends {
		if !b.configured() {
			err := fmt.Errorf("%s: %w", b.name(), ErrNotConfigured)
			log.Warn("skipping provider", slog.String("provider", b.name()), slog.String("reason", "not configured"))
			failures = append(failures, err)
			continue
		}

		text, err := o.generateWith(ctx, log, b, prompt)
		if err == nil {
			return text, nil
		}
		log.Warn("provider exhausted, falling back",
			slog.String("provider", b.name()),
			slog.String("error", err.Error()))
		failures = append(failures, err)
	}

	err := &ExhaustedError{Failures: failures}
	log.Error("all providers failed", slog.String("error", err.Error()))
	return "", err
}

func (o *Orchestrator) generateWith(
	ctx context.Context,
	log *slog.Logger,
	b Backend,
	prompt string,
) (string, error) {
	name := b.name()
	attempts := b.Rotation.Len()

	var last Outcome
	for attempt := 0; attempt < attempts; attempt++ {
		model := b.Rotation.Current()
		last = o.call(ctx, b.Provider, model, prompt)

		if last.Kind == OutcomeSuccess {
			log.Debug("provider call succeeded",
				slog.String("provider", name),
				slog.String("model", model),
				slog.Int("attempt", attempt))
			return last.Text, nil
		}

		log.Warn("provider call failed",
			slog.String("provider", name),
			slog.String("model", model),
			slog.String("outcome", last.Kind.String()),
			slog.Int("attempt", attempt),
			slog.String("error", redact.String(last.Message)))

		if attempt < attempts-1 {
			b.Rotation.Advance()
		}
	}

	if last.Kind == OutcomeQuotaExhausted {
		return "", &ProviderError{
			Provider:   name,
			Kind:       ErrQuotaExhausted,
			RetryAfter: last.RetryAfter,
			Message:    redact.String(last.Message),
		}
	}
	return "", &ProviderError{
		Provider: name,
		Kind:     ErrProviderUnavailable,
		Message:  redact.String(last.Message),
	}
}

func (o *Orchestrator) call(ctx context.Context, p Provider, model, prompt string) Outcome {
	callCtx := context.WithoutCancel(ctx)
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, o.callTimeout)
		defer cancel()
	}

	start := time.Now()
	out := p.Call(callCtx, model, prompt)
	o.recorder.ObserveCall(p.Name(), model, out.Kind, time.Since(start))
	return out
}
