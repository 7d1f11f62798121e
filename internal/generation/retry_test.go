package generation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryHint(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    time.Duration
	}{
		{name: "no hint", message: "quota exceeded", want: 65 * time.Second},
		{name: "empty", message: "", want: 65 * time.Second},
		{name: "seconds word", message: "Rate limited. Please retry in 12 seconds.", want: 17 * time.Second},
		{name: "fractional", message: "Please retry in 37.5s.", want: 42500 * time.Millisecond},
		{name: "case insensitive", message: "RETRY IN 3 SEC", want: 8 * time.Second},
		{name: "negative clamps to zero", message: "retry in -4s", want: 5 * time.Second},
		{name: "zero", message: "retry in 0s", want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryHint(tt.message))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 15*time.Second, RetryAfterSeconds(10))
	assert.Equal(t, RetryMargin, RetryAfterSeconds(-1))
}

func TestProviderErrorMessage(t *testing.T) {
	quota := &ProviderError{Provider: "gemini", Kind: ErrQuotaExhausted, RetryAfter: 65 * time.Second, Message: "limit"}
	assert.Equal(t, "gemini: provider quota exhausted (retry in 1m5s): limit", quota.Error())
	assert.ErrorIs(t, quota, ErrQuotaExhausted)
	assert.Equal(t, 65*time.Second, RetryAfter(quota))

	down := &ProviderError{Provider: "anthropic", Kind: ErrProviderUnavailable, Message: "500"}
	assert.Equal(t, "anthropic: provider unavailable: 500", down.Error())
	assert.Zero(t, RetryAfter(down))
}
