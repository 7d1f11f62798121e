package generation

import "time"

// Recorder receives call and rotation events for metrics. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveCall(provider, model string, outcome OutcomeKind, elapsed time.Duration)
	ObserveRotation(provider, from, to string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCall(string, string, OutcomeKind, time.Duration) {}
func (nopRecorder) ObserveRotation(string, string, string)                 {}
