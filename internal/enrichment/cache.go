package enrichment

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrInvalidCacheConfig is returned when a cache is created with a
// non-positive TTL or capacity.
var ErrInvalidCacheConfig = errors.New("invalid cache configuration")

// CacheRecorder receives cache lookups and evictions for metrics.
type CacheRecorder interface {
	ObserveCacheLookup(cache string, hit bool)
	ObserveCacheEviction(cache string, evicted int)
}

type nopCacheRecorder struct{}

func (nopCacheRecorder) ObserveCacheLookup(string, bool)  {}
func (nopCacheRecorder) ObserveCacheEviction(string, int) {}

type cacheEntry[V any] struct {
	value      V
	insertedAt time.Time
	seq        uint64
}

// Cache is a bounded key/value store whose entries expire a fixed TTL after
// insertion. When full it evicts the oldest half of its entries at once.
// It is safe for concurrent use; concurrent writers of one key race and the
// last write wins.
type Cache[V any] struct {
	mu       sync.Mutex
	name     string
	ttl      time.Duration
	capacity int
	now      func() time.Time
	seq      uint64
	items    map[string]*cacheEntry[V]
	recorder CacheRecorder
	logger   *slog.Logger
}

// CacheOption customizes a Cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	name     string
	now      func() time.Time
	recorder CacheRecorder
	logger   *slog.Logger
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(o *cacheOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCacheName labels the cache in logs and metrics.
func WithCacheName(name string) CacheOption {
	return func(o *cacheOptions) {
		o.name = name
	}
}

// WithCacheRecorder sets the metrics sink.
func WithCacheRecorder(rec CacheRecorder) CacheOption {
	return func(o *cacheOptions) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

// WithCacheLogger sets the logger used to report evictions.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewCache creates an empty cache holding at most capacity entries, each
// valid for ttl.
func NewCache[V any](ttl time.Duration, capacity int, opts ...CacheOption) (*Cache[V], error) {
	if ttl <= 0 {
		return nil, errors.Join(ErrInvalidCacheConfig, errors.New("ttl must be positive"))
	}
	if capacity <= 0 {
		return nil, errors.Join(ErrInvalidCacheConfig, errors.New("capacity must be positive"))
	}

	o := cacheOptions{
		name:     "enrichment",
		now:      time.Now,
		recorder: nopCacheRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		name:     o.name,
		ttl:      ttl,
		capacity: capacity,
		now:      o.now,
		items:    make(map[string]*cacheEntry[V], capacity),
		recorder: o.recorder,
		logger:   o.logger.With(slog.String("component", "cache"), slog.String("cache", o.name)),
	}, nil
}

// Get returns the value stored under key. An entry whose age has reached
// the TTL is removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		c.recorder.ObserveCacheLookup(c.name, false)
		return zero, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		delete(c.items, key)
		c.recorder.ObserveCacheLookup(c.name, false)
		return zero, false
	}
	c.recorder.ObserveCacheLookup(c.name, true)
	return e.value, true
}

// Put stores value under key with a fresh insertion time. Inserting a new
// key into a full cache first evicts the oldest half of the entries.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.capacity {
		c.evictOldestHalf()
	}

	c.seq++
	c.items[key] = &cacheEntry[V]{value: value, insertedAt: c.now(), seq: c.seq}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictOldestHalf removes max(1, len/2) entries ordered by insertion time,
// ties broken by insertion order. Callers hold c.mu.
func (c *Cache[V]) evictOldestHalf() {
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := c.items[keys[i]], c.items[keys[j]]
		if !a.insertedAt.Equal(b.insertedAt) {
			return a.insertedAt.Before(b.insertedAt)
		}
		return a.seq < b.seq
	})

	n := len(keys) / 2
	if n < 1 {
		n = 1
	}
	for _, k := range keys[:n] {
		delete(c.items, k)
	}

	c.recorder.ObserveCacheEviction(c.name, n)
	c.logger.Debug("evicted oldest entries",
		slog.Int("evicted", n),
		slog.Int("remaining", len(c.items)))
}

// NormalizeKey returns the cache key for word: trimmed and case-folded.
func NormalizeKey(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
