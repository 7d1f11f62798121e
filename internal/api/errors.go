package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lexicard/lexicard-api/internal/api/shared"
	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/generation"
	"github.com/lexicard/lexicard-api/internal/service/auth"
	"github.com/lexicard/lexicard-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Provider errors. An exhausted chain takes precedence over a provider
	// that was skipped for lack of configuration.
	case errors.Is(err, generation.ErrAllProvidersExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, generation.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, generation.ErrQuotaExhausted):
		return http.StatusTooManyRequests

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, generation.ErrAllProvidersExhausted),
		errors.Is(err, generation.ErrQuotaExhausted) && !errors.Is(err, generation.ErrNotConfigured):
		return "AI providers are over quota, try again later"
	case errors.Is(err, generation.ErrNotConfigured):
		return "AI provider is not configured"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "User ID not found or invalid"

	case errors.Is(err, store.ErrDeckNotFound):
		return "Deck not found"
	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, domain.ErrEmptyWord):
		return "word is required"
	case errors.Is(err, domain.ErrInvalidCount):
		return "count is out of range"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message)
	}
	if errors.Is(err, domain.ErrValidation) {
		return "Validation error"
	}

	return "An unexpected error occurred"
}

// HandleAPIError writes the error response for err. fallback replaces the
// generic message of 500 responses when it is not empty. 429 responses carry
// a Retry-After header.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusTooManyRequests {
		opts = append(opts, shared.WithRetryAfter(retryAfter(err)))
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

func retryAfter(err error) time.Duration {
	if d := generation.RetryAfter(err); d > 0 {
		return d
	}
	return generation.DefaultRetryAfter + generation.RetryMargin
}

// SanitizeValidationError turns validator errors into a short message that
// names the first offending field by its JSON name.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "invalid id"
	case "dive":
		return "invalid item"
	default:
		return "validation failed"
	}
}
