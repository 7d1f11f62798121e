package metrics

import (
	"strconv"
	"time"

	"github.com/lexicard/lexicard-api/internal/generation"
	"github.com/lexicard/lexicard-api/internal/parser"
)

// ObserveCall implements generation.Recorder.
func (r *Registry) ObserveCall(provider, model string, outcome generation.OutcomeKind, elapsed time.Duration) {
	r.ProviderCallsTotal.WithLabelValues(provider, model, outcome.String()).Inc()
	r.ProviderCallDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
}

// ObserveRotation implements generation.Recorder.
func (r *Registry) ObserveRotation(provider, from, to string) {
	r.ModelRotationsTotal.WithLabelValues(provider, from, to).Inc()
}

// ObserveCacheLookup implements enrichment.CacheRecorder.
func (r *Registry) ObserveCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// ObserveCacheEviction implements enrichment.CacheRecorder.
func (r *Registry) ObserveCacheEviction(cache string, evicted int) {
	r.CacheEvictionsTotal.WithLabelValues(cache).Add(float64(evicted))
}

// ObserveParse implements enrichment.Recorder.
func (r *Registry) ObserveParse(operation string, recovery parser.Recovery) {
	r.ParseRecoveriesTotal.WithLabelValues(operation, recovery.String()).Inc()
}

// RecordHTTPRequest records one served request. route is the matched route
// pattern, not the raw path.
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordTask records a finished background task.
func (r *Registry) RecordTask(taskType, status string) {
	r.TasksTotal.WithLabelValues(taskType, status).Inc()
}
