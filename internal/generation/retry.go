package generation

import (
	"regexp"
	"strconv"
	"time"
)

const (
	// DefaultRetryAfter is used when a quota error carries no hint.
	DefaultRetryAfter = 60 * time.Second

	// RetryMargin is added to every hint before it is reported.
	RetryMargin = 5 * time.Second
)

// Matches "retry in 37.5s", "Retry in 12 seconds", "retry in 3 sec".
var retryInPattern = regexp.MustCompile(`(?i)retry\s+in\s+(-?\d+(?:\.\d+)?)\s*s`)

// RetryHint extracts the suggested wait from a vendor error message.
// It returns max(parsed, 0) + RetryMargin, or DefaultRetryAfter + RetryMargin
// when the message carries no hint.
func RetryHint(message string) time.Duration {
	m := retryInPattern.FindStringSubmatch(message)
	if m == nil {
		return DefaultRetryAfter + RetryMargin
	}
	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultRetryAfter + RetryMargin
	}
	return RetryAfterSeconds(seconds)
}

// RetryAfterSeconds converts a vendor-supplied number of seconds into a
// reported wait, clamping negatives to zero and adding RetryMargin.
func RetryAfterSeconds(seconds float64) time.Duration {
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds*float64(time.Second)) + RetryMargin
}
