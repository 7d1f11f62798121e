package generation

import (
	"context"
	"fmt"
	"time"
)

// Provider is a single LLM vendor. Implementations perform exactly one
// request per Call and classify the result; they never retry or rotate.
type Provider interface {
	// Name identifies the provider in logs, metrics and error messages.
	Name() string

	// Call sends prompt to model and reports what happened.
	Call(ctx context.Context, model, prompt string) Outcome
}

// OutcomeKind classifies a provider call.
type OutcomeKind int

const (
	// OutcomeSuccess means Text holds the reply.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeQuotaExhausted means the model refused for quota or rate reasons.
	// RetryAfter carries the suggested wait.
	OutcomeQuotaExhausted
	// OutcomeFailure covers every other error.
	OutcomeFailure
)

// String returns the metric label for k.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeQuotaExhausted:
		return "quota_exhausted"
	case OutcomeFailure:
		return "failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the classified result of one provider call.
type Outcome struct {
	Kind       OutcomeKind
	Text       string
	RetryAfter time.Duration
	Message    string
}

// Success builds a successful outcome.
func Success(text string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

// QuotaExhausted builds a quota outcome. retryAfter should already include
// the safety margin added by RetryHint.
func QuotaExhausted(retryAfter time.Duration, message string) Outcome {
	return Outcome{Kind: OutcomeQuotaExhausted, RetryAfter: retryAfter, Message: message}
}

// Failure builds an outcome for any non-quota error.
func Failure(message string) Outcome {
	return Outcome{Kind: OutcomeFailure, Message: message}
}
