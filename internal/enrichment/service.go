package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lexicard/lexicard-api/internal/config"
	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/parser"
	"github.com/lexicard/lexicard-api/internal/platform/logger"
)

// MaxWordListCount bounds GenerateWordList.
const MaxWordListCount = 100

const pronunciationBaseURL = "https://translate.google.com/translate_tts?ie=UTF-8&tl=en&client=tw-ob&q="

// Generator produces reply text for a prompt. *generation.Orchestrator
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder receives cache and parse events for metrics.
type Recorder interface {
	CacheRecorder
	ObserveParse(operation string, recovery parser.Recovery)
}

type nopRecorder struct{ nopCacheRecorder }

func (nopRecorder) ObserveParse(string, parser.Recovery) {}

// Service turns words into structured enrichment data, caching what it
// learns so repeated lookups do not reach a provider.
type Service struct {
	gen          Generator
	entries      *Cache[domain.EnrichmentEntry]
	synonyms     *Cache[[]string]
	prompts      *prompts
	chunkSize    int
	synonymLimit int
	logger       *slog.Logger
	recorder     Recorder
}

// Option customizes a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger   *slog.Logger
	now      func() time.Time
	recorder Recorder
}

// WithLogger sets the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNow sets the clock used by the service caches.
func WithNow(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(rec Recorder) Option {
	return func(o *serviceOptions) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

// NewService creates a Service backed by gen.
func NewService(gen Generator, cfg config.EnrichmentConfig, opts ...Option) (*Service, error) {
	if gen == nil {
		return nil, errors.New("enrichment: generator cannot be nil")
	}

	o := serviceOptions{
		logger:   slog.Default(),
		now:      time.Now,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.With(slog.String("component", "enrichment"))

	p, err := newPrompts()
	if err != nil {
		return nil, err
	}

	entries, err := NewCache[domain.EnrichmentEntry](cfg.CacheTTL, cfg.CacheCapacity,
		WithCacheName("entries"), WithClock(o.now), WithCacheRecorder(o.recorder), WithCacheLogger(log))
	if err != nil {
		return nil, err
	}
	synonyms, err := NewCache[[]string](cfg.CacheTTL, cfg.CacheCapacity,
		WithCacheName("synonyms"), WithClock(o.now), WithCacheRecorder(o.recorder), WithCacheLogger(log))
	if err != nil {
		return nil, err
	}

	chunk := cfg.BatchChunkSize
	if chunk <= 0 {
		chunk = 10
	}
	limit := cfg.SynonymLimit
	if limit <= 0 {
		limit = 12
	}

	return &Service{
		gen:          gen,
		entries:      entries,
		synonyms:     synonyms,
		prompts:      p,
		chunkSize:    chunk,
		synonymLimit: limit,
		logger:       log,
		recorder:     o.recorder,
	}, nil
}

// EnrichWord returns the transcription and senses of word. Replies the
// parser cannot recover yield an empty entry, not an error; only non-empty
// entries are cached.
func (s *Service) EnrichWord(ctx context.Context, word string) (domain.EnrichmentEntry, error) {
	key := NormalizeKey(word)
	if key == "" {
		return domain.EnrichmentEntry{}, domain.ErrEmptyWord
	}
	word = strings.TrimSpace(word)

	if e, ok := s.entries.Get(key); ok {
		e.Word = word
		e.Senses = slices.Clone(e.Senses)
		return e, nil
	}

	prompt, err := render(s.prompts.enrichWord, wordData{Word: word, PartsOfSpeech: partsOfSpeech()})
	if err != nil {
		return domain.EnrichmentEntry{}, err
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return domain.EnrichmentEntry{}, fmt.Errorf("enrich word: %w", err)
	}

	res := parser.Parse(text, parser.Single())
	s.observeParse(ctx, "enrich_word", res, 1)

	entry := res.First()
	entry.Word = word
	if !entry.IsEmpty() {
		s.entries.Put(key, entry)
	}
	return entry, nil
}

// EnrichWordsBatch enriches words in chunks, one provider call per chunk of
// cache misses. The result is positionally aligned with words; words the
// reply did not cover get empty entries. Blank words are skipped and get an
// empty entry too.
func (s *Service) EnrichWordsBatch(ctx context.Context, words []string) ([]domain.EnrichmentEntry, error) {
	out := make([]domain.EnrichmentEntry, len(words))
	for i := range words {
		out[i].Word = strings.TrimSpace(words[i])
	}

	for start := 0; start < len(words); start += s.chunkSize {
		end := min(start+s.chunkSize, len(words))
		if err := s.enrichChunk(ctx, words[start:end], out[start:end]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) enrichChunk(ctx context.Context, words []string, out []domain.EnrichmentEntry) error {
	var (
		missKeys  []string
		missWords []string
		positions = make(map[string][]int)
	)
	for i, w := range words {
		key := NormalizeKey(w)
		if key == "" {
			continue
		}
		if e, ok := s.entries.Get(key); ok {
			e.Word = out[i].Word
			e.Senses = slices.Clone(e.Senses)
			out[i] = e
			continue
		}
		if _, seen := positions[key]; !seen {
			missKeys = append(missKeys, key)
			missWords = append(missWords, out[i].Word)
		}
		positions[key] = append(positions[key], i)
	}
	if len(missKeys) == 0 {
		return nil
	}

	prompt, err := render(s.prompts.enrichBatch, batchData{Words: missWords, PartsOfSpeech: partsOfSpeech()})
	if err != nil {
		return err
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("enrich batch of %d words: %w", len(missKeys), err)
	}

	res := parser.Parse(text, parser.Array(len(missKeys)))
	s.observeParse(ctx, "enrich_batch", res, len(missKeys))

	for j, key := range missKeys {
		entry := res.Entries[j]
		if !entry.IsEmpty() {
			s.entries.Put(key, entry)
		}
		for _, i := range positions[key] {
			e := entry
			e.Word = out[i].Word
			e.Senses = slices.Clone(entry.Senses)
			out[i] = e
		}
	}
	return nil
}

// GetSynonyms returns up to limit synonyms of word, never including the word
// itself. limit <= 0 uses the configured default.
func (s *Service) GetSynonyms(ctx context.Context, word string, limit int) ([]string, error) {
	key := NormalizeKey(word)
	if key == "" {
		return nil, domain.ErrEmptyWord
	}
	if limit <= 0 {
		limit = s.synonymLimit
	}

	cacheKey := key + "\x00" + strconv.Itoa(limit)
	if syns, ok := s.synonyms.Get(cacheKey); ok {
		return slices.Clone(syns), nil
	}

	prompt, err := render(s.prompts.synonyms, synonymsData{Word: strings.TrimSpace(word), Limit: limit})
	if err != nil {
		return nil, err
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("get synonyms: %w", err)
	}

	// One extra in case the model echoes the word back.
	syns := parser.ParseStringList(text, limit+1)
	syns = slices.DeleteFunc(syns, func(w string) bool {
		return NormalizeKey(w) == key
	})
	if len(syns) > limit {
		syns = syns[:limit]
	}

	if len(syns) > 0 {
		s.synonyms.Put(cacheKey, slices.Clone(syns))
	}
	return syns, nil
}

// GenerateWordList asks for count learner words at the given CEFR level
// and/or topic. With neither, level A1 is used.
func (s *Service) GenerateWordList(ctx context.Context, level, topic string, count int) ([]domain.WordSuggestion, error) {
	if count <= 0 || count > MaxWordListCount {
		return nil, domain.ErrInvalidCount
	}
	level, topic = strings.TrimSpace(level), strings.TrimSpace(topic)
	if level == "" && topic == "" {
		level = "A1"
	}

	prompt, err := render(s.prompts.wordList, wordListData{Count: count, Level: level, Topic: topic})
	if err != nil {
		return nil, err
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate word list: %w", err)
	}

	words := parser.ParseWordList(text, count)
	logger.FromContextOrDefault(ctx, s.logger).Debug("generated word list",
		slog.Int("requested", count),
		slog.Int("parsed", len(words)))
	return words, nil
}

// PronunciationURL returns a text-to-speech URL for word, or "" for a blank
// word.
func PronunciationURL(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	// QueryEscape leaves spaces as '+'; a literal '+' is already %2B.
	return pronunciationBaseURL + strings.ReplaceAll(url.QueryEscape(word), "+", "%20")
}

func (s *Service) observeParse(ctx context.Context, op string, res parser.Result, expected int) {
	s.recorder.ObserveParse(op, res.Recovery)
	if res.Recovery == parser.RecoveryFull {
		return
	}
	logger.FromContextOrDefault(ctx, s.logger).Warn("model reply only partly recovered",
		slog.String("operation", op),
		slog.String("recovery", res.Recovery.String()),
		slog.Int("expected", expected),
		slog.Int("recovered", res.Recovered))
}
