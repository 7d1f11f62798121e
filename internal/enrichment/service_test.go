package enrichment

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lexicard/lexicard-api/internal/config"
	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/generation"
	"github.com/lexicard/lexicard-api/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator returns its replies in order, repeating the last one.
type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type parseRecorder struct {
	countingCacheRecorder
	recoveries []parser.Recovery
}

func (r *parseRecorder) ObserveParse(_ string, rec parser.Recovery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recoveries = append(r.recoveries, rec)
}

func testConfig() config.EnrichmentConfig {
	return config.EnrichmentConfig{
		CacheTTL:           time.Hour,
		CacheCapacity:      100,
		BatchChunkSize:     10,
		SynonymLimit:       12,
		SynonymConcurrency: 2,
		SuggestCardLimit:   30,
		ClusterMode:        "symmetric",
	}
}

func newTestService(t *testing.T, gen Generator, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(gen, testConfig(), opts...)
	require.NoError(t, err)
	return svc
}

const bookReply = "```json\n" + `{"transcription": "[bʊk]", "senses": [
	{"part_of_speech": "noun", "translation": "книга", "example": "I read a book."},
	{"part_of_speech": "verb", "translation": "бронировать", "example": "Book a table."}
]}` + "\n```"

func TestEnrichWordCachesResult(t *testing.T) {
	gen := &fakeGenerator{replies: []string{bookReply}}
	svc := newTestService(t, gen)

	entry, err := svc.EnrichWord(context.Background(), "book")
	require.NoError(t, err)
	assert.Equal(t, "book", entry.Word)
	assert.Equal(t, "bʊk", entry.Transcription)
	require.Len(t, entry.Senses, 2)
	assert.Equal(t, domain.PartOfSpeechVerb, entry.Senses[1].PartOfSpeech)
	assert.Contains(t, gen.lastPrompt(), `"book"`)

	again, err := svc.EnrichWord(context.Background(), "  Book ")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls(), "second lookup should be served from the cache")
	assert.Equal(t, "Book", again.Word)
	assert.Equal(t, entry.Senses, again.Senses)
}

func TestEnrichWordDoesNotCacheEmptyResult(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"Sorry, I cannot do that."}}
	svc := newTestService(t, gen)

	entry, err := svc.EnrichWord(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.True(t, entry.IsEmpty())

	_, err = svc.EnrichWord(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls())
}

func TestEnrichWordExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	gen := &fakeGenerator{replies: []string{bookReply}}
	svc := newTestService(t, gen, WithNow(clock.Now))

	_, err := svc.EnrichWord(context.Background(), "book")
	require.NoError(t, err)

	clock.Advance(time.Hour - time.Second)
	_, err = svc.EnrichWord(context.Background(), "book")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls())

	clock.Advance(2 * time.Second)
	_, err = svc.EnrichWord(context.Background(), "book")
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls())
}

func TestEnrichWordErrors(t *testing.T) {
	t.Run("blank word", func(t *testing.T) {
		gen := &fakeGenerator{}
		svc := newTestService(t, gen)

		_, err := svc.EnrichWord(context.Background(), "  ")
		assert.ErrorIs(t, err, domain.ErrEmptyWord)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, gen.calls())
	})

	t.Run("providers exhausted", func(t *testing.T) {
		exhausted := &generation.ExhaustedError{Failures: []error{
			&generation.ProviderError{Provider: "gemini", Kind: generation.ErrQuotaExhausted, RetryAfter: time.Minute},
		}}
		svc := newTestService(t, &fakeGenerator{err: exhausted})

		_, err := svc.EnrichWord(context.Background(), "book")
		assert.ErrorIs(t, err, generation.ErrAllProvidersExhausted)
		assert.Equal(t, time.Minute, generation.RetryAfter(err))
	})
}

func TestEnrichWordsBatchAlignsShortReply(t *testing.T) {
	reply := `[
		{"word": "cat", "transcription": "kæt", "senses": [{"part_of_speech": "noun", "translation": "кот", "example": "A cat."}]},
		{"word": "run", "transcription": "rʌn", "senses": [{"part_of_speech": "verb", "translation": "бежать", "example": "I run."}]},
		{"word": "red", "transcription": "red", "senses": [{"part_of_speech": "adjective", "translation": "красный", "example": "A red car."}]}
	]`
	rec := &parseRecorder{}
	gen := &fakeGenerator{replies: []string{reply}}
	svc := newTestService(t, gen, WithRecorder(rec))

	words := []string{"cat", "run", "red", "blue", "slowly"}
	entries, err := svc.EnrichWordsBatch(context.Background(), words)
	require.NoError(t, err)

	require.Len(t, entries, 5)
	for i, w := range words {
		assert.Equal(t, w, entries[i].Word)
	}
	assert.Equal(t, "kæt", entries[0].Transcription)
	assert.Equal(t, "rʌn", entries[1].Transcription)
	assert.Equal(t, "red", entries[2].Transcription)
	assert.True(t, entries[3].IsEmpty())
	assert.True(t, entries[4].IsEmpty())
	assert.Equal(t, 1, gen.calls())
	assert.Equal(t, []parser.Recovery{parser.RecoveryPartial}, rec.recoveries)
}

func TestEnrichWordsBatchSendsOnlyMisses(t *testing.T) {
	gen := &fakeGenerator{replies: []string{
		bookReply,
		`[{"transcription": "dɒɡ", "senses": [{"part_of_speech": "noun", "translation": "собака", "example": "A dog."}]}]`,
	}}
	svc := newTestService(t, gen)

	_, err := svc.EnrichWord(context.Background(), "book")
	require.NoError(t, err)

	entries, err := svc.EnrichWordsBatch(context.Background(), []string{"Book", "dog"})
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls())
	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, `"dog"`)
	assert.NotContains(t, prompt, `"Book"`)
	assert.Contains(t, prompt, "exactly 1 objects")

	assert.Equal(t, "Book", entries[0].Word)
	assert.Equal(t, "bʊk", entries[0].Transcription)
	assert.Equal(t, "dɒɡ", entries[1].Transcription)

	// The batch result was written back.
	entry, err := svc.EnrichWord(context.Background(), "DOG")
	require.NoError(t, err)
	assert.Equal(t, "dɒɡ", entry.Transcription)
	assert.Equal(t, 2, gen.calls())
}

func TestEnrichWordsBatchDeduplicatesWithinChunk(t *testing.T) {
	gen := &fakeGenerator{replies: []string{
		`[{"transcription": "rʌn", "senses": []}, {"transcription": "wɔːk", "senses": []}]`,
	}}
	svc := newTestService(t, gen)

	entries, err := svc.EnrichWordsBatch(context.Background(), []string{"Run", "run", "walk", ""})
	require.NoError(t, err)

	require.Len(t, entries, 4)
	assert.Equal(t, "rʌn", entries[0].Transcription)
	assert.Equal(t, "Run", entries[0].Word)
	assert.Equal(t, "rʌn", entries[1].Transcription)
	assert.Equal(t, "run", entries[1].Word)
	assert.Equal(t, "wɔːk", entries[2].Transcription)
	assert.True(t, entries[3].IsEmpty())
	assert.Contains(t, gen.lastPrompt(), "exactly 2 objects")
}

func TestEnrichWordsBatchChunks(t *testing.T) {
	cfg := testConfig()
	cfg.BatchChunkSize = 2
	gen := &fakeGenerator{replies: []string{
		`[{"transcription": "a"}, {"transcription": "b"}]`,
		`[{"transcription": "c"}, {"transcription": "d"}]`,
		`[{"transcription": "e"}]`,
	}}
	svc, err := NewService(gen, cfg)
	require.NoError(t, err)

	entries, err := svc.EnrichWordsBatch(context.Background(), []string{"w1", "w2", "w3", "w4", "w5"})
	require.NoError(t, err)

	assert.Equal(t, 3, gen.calls())
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Transcription
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestEnrichWordsBatchPropagatesProviderError(t *testing.T) {
	boom := errors.New("boom")
	svc := newTestService(t, &fakeGenerator{err: boom})

	entries, err := svc.EnrichWordsBatch(context.Background(), []string{"cat"})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, entries)
}

func TestEnrichWordsBatchEmptyInput(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)

	entries, err := svc.EnrichWordsBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, gen.calls())
}

func TestGetSynonyms(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`["large", "Big", "huge", "large", "vast"]`}}
	svc := newTestService(t, gen)

	syns, err := svc.GetSynonyms(context.Background(), "big", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"large", "huge", "vast"}, syns)
	assert.Contains(t, gen.lastPrompt(), "up to 3")

	syns[0] = "mutated"
	again, err := svc.GetSynonyms(context.Background(), " BIG ", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"large", "huge", "vast"}, again)
	assert.Equal(t, 1, gen.calls())
}

func TestGetSynonymsDefaultLimitAndBlankWord(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"1. quick\n2. rapid"}}
	svc := newTestService(t, gen)

	syns, err := svc.GetSynonyms(context.Background(), "fast", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"quick", "rapid"}, syns)
	assert.Contains(t, gen.lastPrompt(), "up to 12")

	_, err = svc.GetSynonyms(context.Background(), "", 5)
	assert.ErrorIs(t, err, domain.ErrEmptyWord)
}

func TestGenerateWordList(t *testing.T) {
	reply := "apple | яблоко | I eat an apple every day. | ˈæpl\n" +
		"bread | хлеб | Fresh bread smells good. | [bred]\n" +
		"milk | молоко | I drink milk. | mɪlk\n"

	t.Run("defaults to A1", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{reply}}
		svc := newTestService(t, gen)

		words, err := svc.GenerateWordList(context.Background(), "", "", 2)
		require.NoError(t, err)
		require.Len(t, words, 2)
		assert.Equal(t, domain.WordSuggestion{
			Word: "apple", Translation: "яблоко", Example: "I eat an apple every day.", Transcription: "ˈæpl",
		}, words[0])
		assert.Equal(t, "bred", words[1].Transcription)

		prompt := gen.lastPrompt()
		assert.Contains(t, prompt, "Generate 2 frequent English words")
		assert.Contains(t, prompt, "Use CEFR level: A1.")
		assert.NotContains(t, prompt, "topic/theme")
	})

	t.Run("topic only", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{reply}}
		svc := newTestService(t, gen)

		_, err := svc.GenerateWordList(context.Background(), "", "food", 10)
		require.NoError(t, err)
		prompt := gen.lastPrompt()
		assert.Contains(t, prompt, "Use topic/theme: food.")
		assert.NotContains(t, prompt, "CEFR level:")
	})

	t.Run("count out of range", func(t *testing.T) {
		gen := &fakeGenerator{}
		svc := newTestService(t, gen)

		_, err := svc.GenerateWordList(context.Background(), "B1", "", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidCount)
		_, err = svc.GenerateWordList(context.Background(), "B1", "", MaxWordListCount+1)
		assert.ErrorIs(t, err, domain.ErrInvalidCount)
		assert.Zero(t, gen.calls())
	})
}

func TestPronunciationURL(t *testing.T) {
	assert.Equal(t,
		"https://translate.google.com/translate_tts?ie=UTF-8&tl=en&client=tw-ob&q=ice%20cream",
		PronunciationURL(" ice cream "))
	assert.Equal(t, "", PronunciationURL("  "))

	for _, word := range []string{"AT&T", "rock+roll", "a=b;c", "ice cream"} {
		u, err := url.Parse(PronunciationURL(word))
		require.NoError(t, err)
		assert.Equal(t, word, u.Query().Get("q"))
		assert.Equal(t, "en", u.Query().Get("tl"))
	}
}

func TestCachedEntriesAreNotShared(t *testing.T) {
	reply := `{"transcription": "kæt", "senses": [{"part_of_speech": "noun", "translation": "кошка", "example": "A cat."}]}`
	gen := &fakeGenerator{replies: []string{reply}}
	svc := newTestService(t, gen)
	ctx := context.Background()

	first, err := svc.EnrichWord(ctx, "cat")
	require.NoError(t, err)
	require.Len(t, first.Senses, 1)
	first.Senses[0].Translation = "changed"

	second, err := svc.EnrichWord(ctx, "cat")
	require.NoError(t, err)
	require.Len(t, second.Senses, 1)
	assert.Equal(t, "кошка", second.Senses[0].Translation)
	second.Senses[0].Translation = "changed again"

	batch, err := svc.EnrichWordsBatch(ctx, []string{"cat", "Cat"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	batch[0].Senses[0].Translation = "batch"
	assert.Equal(t, "кошка", batch[1].Senses[0].Translation)

	third, err := svc.EnrichWord(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, "кошка", third.Senses[0].Translation)
	assert.Equal(t, 1, gen.calls())
}

func TestPromptsRender(t *testing.T) {
	p, err := newPrompts()
	require.NoError(t, err)

	out, err := render(p.enrichBatch, batchData{Words: []string{"cat", `say "hi"`}, PartsOfSpeech: partsOfSpeech()})
	require.NoError(t, err)
	assert.Contains(t, out, `1. "cat"`)
	assert.Contains(t, out, `2. "say \"hi\""`)
	assert.Contains(t, out, "noun, verb, adjective, adverb")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "]"))
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(nil, testConfig())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.CacheCapacity = 0
	_, err = NewService(&fakeGenerator{}, cfg)
	assert.ErrorIs(t, err, ErrInvalidCacheConfig)
}
