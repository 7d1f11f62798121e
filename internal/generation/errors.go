package generation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors returned by the generation package
var (
	// ErrQuotaExhausted is matched by a ProviderError whose last attempt hit a
	// quota or rate limit.
	ErrQuotaExhausted = errors.New("provider quota exhausted")

	// ErrProviderUnavailable is matched by a ProviderError whose last attempt
	// failed for any other reason.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAllProvidersExhausted is matched by an ExhaustedError when every
	// configured provider was tried and failed.
	ErrAllProvidersExhausted = errors.New("all llm providers exhausted")

	// ErrNotConfigured is returned when a provider has no client or no models.
	ErrNotConfigured = errors.New("llm provider not configured")
)

// ProviderError reports that every model of one provider failed.
type ProviderError struct {
	Provider string
	// Kind is ErrQuotaExhausted or ErrProviderUnavailable.
	Kind error
	// RetryAfter is set for quota failures.
	RetryAfter time.Duration
	// Message is the redacted vendor message of the last attempt.
	Message string
}

func (e *ProviderError) Error() string {
	if errors.Is(e.Kind, ErrQuotaExhausted) {
		return fmt.Sprintf("%s: %v (retry in %s): %s", e.Provider, e.Kind, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s: %v: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// ExhaustedError is the single error surfaced when no provider produced a
// reply. It carries one failure per provider, in priority order.
type ExhaustedError struct {
	Failures []error
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return "llm providers exhausted: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-provider failures to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	return e.Failures
}

// Is matches ErrAllProvidersExhausted only when no provider was skipped for
// lack of configuration. A missing provider is an operator problem, not a
// condition that goes away by retrying later.
func (e *ExhaustedError) Is(target error) bool {
	if target != ErrAllProvidersExhausted {
		return false
	}
	for _, f := range e.Failures {
		if errors.Is(f, ErrNotConfigured) {
			return false
		}
	}
	return len(e.Failures) > 0
}

// RetryAfter returns the largest retry hint among quota failures, or zero
// when none of the providers reported one.
func (e *ExhaustedError) RetryAfter() time.Duration {
	var longest time.Duration
	for _, f := range e.Failures {
		var pe *ProviderError
		if errors.As(f, &pe) && pe.RetryAfter > longest {
			longest = pe.RetryAfter
		}
	}
	return longest
}

// RetryAfter extracts a retry hint from any error returned by Generate.
func RetryAfter(err error) time.Duration {
	var ee *ExhaustedError
	if errors.As(err, &ee) {
		return ee.RetryAfter()
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}
