package synonym

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/platform/logger"
)

// Source returns related words for a word. *enrichment.Service satisfies it.
type Source interface {
	GetSynonyms(ctx context.Context, word string, limit int) ([]string, error)
}

// Suggester fetches synonyms for a set of items and clusters them.
type Suggester struct {
	source      Source
	clusterer   Clusterer
	limit       int
	concurrency int
	logger      *slog.Logger
}

// SuggesterOption customizes a Suggester.
type SuggesterOption func(*Suggester)

// WithSynonymLimit sets how many synonyms are requested per item.
func WithSynonymLimit(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithConcurrency bounds the number of synonym lookups in flight.
func WithConcurrency(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the component logger.
func WithLogger(l *slog.Logger) SuggesterOption {
	return func(s *Suggester) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSuggester creates a Suggester. Defaults: 12 synonyms per item, 4
// lookups in flight.
func NewSuggester(source Source, clusterer Clusterer, opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		source:      source,
		clusterer:   clusterer,
		limit:       12,
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "synonym_suggester"))
	return s
}

// SuggestGroups looks up synonyms for every item and returns the resulting
// synonym groups. An item whose lookup fails contributes no edges. The first
// error, in item order, is returned only when every lookup failed.
func (s *Suggester) SuggestGroups(ctx context.Context, items []Item) ([]domain.SynonymGroup, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	related := make([][]string, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	attempted := 0
	for i, it := range items {
		if strings.TrimSpace(it.Word) == "" {
			continue
		}
		attempted++
		g.Go(func() error {
			syns, err := s.source.GetSynonyms(ctx, it.Word, s.limit)
			if err != nil {
				errs[i] = err
				return nil
			}
			related[i] = syns
			return nil
		})
	}
	// Lookups record failures in errs and always return nil.
	g.Wait()

	relatedByID := make(map[string][]string, len(items))
	failed := 0
	var firstErr error
	for i, it := range items {
		if errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			log.Warn("synonym lookup failed",
				slog.String("item_id", it.ID),
				slog.String("error", errs[i].Error()))
			continue
		}
		if related[i] != nil {
			relatedByID[it.ID] = related[i]
		}
	}
	if attempted > 0 && failed == attempted {
		return nil, firstErr
	}

	groups := s.clusterer.Cluster(BuildGraph(items, relatedByID))
	log.Debug("suggested synonym groups",
		slog.Int("items", len(items)),
		slog.Int("failed", failed),
		slog.Int("groups", len(groups)),
		slog.String("mode", s.clusterer.Mode.String()))
	return groups, nil
}
