package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lexicard/lexicard-api/internal/api/shared"
	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/platform/logger"
	"github.com/lexicard/lexicard-api/internal/redact"
	"github.com/lexicard/lexicard-api/internal/service"
	"github.com/lexicard/lexicard-api/internal/store"
)

// DefaultGenerateCount is used when a generate-words request omits count.
const DefaultGenerateCount = 20

// Upper bounds for query parameters.
const (
	maxSynonymsLimit = 50
	maxSimilarLimit  = 50
	maxSuggestLimit  = 200
)

// DeckAIService is the service behind the /ai endpoints.
// *service.DeckAIService satisfies it.
type DeckAIService interface {
	GenerateWords(ctx context.Context, userID, deckID uuid.UUID, level, topic string, count int) (int, error)
	EnrichWord(ctx context.Context, word string) (service.EnrichedWord, error)
	EnrichWords(ctx context.Context, words []string) ([]service.EnrichedWord, error)
	BackfillTranscriptions(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID, limit int) (int, error)
	DeckSynonyms(ctx context.Context, userID, deckID uuid.UUID, word string, limit int) (service.DeckSynonyms, error)
	SuggestSynonymGroups(ctx context.Context, userID, deckID uuid.UUID, limit int) ([]domain.SynonymGroup, error)
	ApplySynonymGroups(ctx context.Context, userID, deckID uuid.UUID, groups [][]uuid.UUID) (int64, error)
	SimilarWords(
		ctx context.Context,
		userID uuid.UUID,
		word string,
		deckID *uuid.UUID,
		limit int,
	) ([]store.SimilarCard, error)
}

// AIHandler serves the AI-assisted deck endpoints.
type AIHandler struct {
	service DeckAIService
	logger  *slog.Logger
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(svc DeckAIService, logger *slog.Logger) *AIHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("service cannot be nil for AIHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AIHandler{
		service: svc,
		logger:  logger.With(slog.String("component", "ai_handler")),
	}
}

// Routes registers the handler's endpoints on r, relative to /ai.
func (h *AIHandler) Routes(r chi.Router) {
	r.Post("/generate-words", h.GenerateWords)
	r.Post("/enrich-word", h.EnrichWord)
	r.Post("/enrich-words", h.EnrichWords)
	r.Post("/backfill-transcriptions", h.BackfillTranscriptions)
	r.Get("/synonyms", h.Synonyms)
	r.Get("/similar-words", h.SimilarWords)
	r.Post("/synonym-groups/suggest", h.SuggestSynonymGroups)
	r.Post("/synonym-groups/apply", h.ApplySynonymGroups)
}

// GenerateWords handles POST /ai/generate-words.
func (h *AIHandler) GenerateWords(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req GenerateWordsRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	deckID, err := parseUUID("deck_id", req.DeckID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	count := req.Count
	if count == 0 {
		count = DefaultGenerateCount
	}

	created, err := h.service.GenerateWords(r.Context(), userID, deckID, req.Level, req.Topic, count)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate words")
		return
	}

	log.Debug("generated words", slog.String("deck_id", deckID.String()), slog.Int("created", created))
	shared.RespondWithJSON(w, r, http.StatusOK, GenerateWordsResponse{Created: created})
}

// EnrichWord handles POST /ai/enrich-word.
func (h *AIHandler) EnrichWord(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r, h.logger); !ok {
		return
	}

	var req EnrichWordRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}

	enriched, err := h.service.EnrichWord(r.Context(), req.Word)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to enrich word")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, enrichedToResponse(enriched))
}

// EnrichWords handles POST /ai/enrich-words.
func (h *AIHandler) EnrichWords(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r, h.logger); !ok {
		return
	}

	var req EnrichWordsRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}

	enriched, err := h.service.EnrichWords(r.Context(), req.Words)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to enrich words")
		return
	}

	resp := EnrichWordsResponse{Results: make([]EnrichWordResponse, len(enriched))}
	for i, e := range enriched {
		resp.Results[i] = enrichedToResponse(e)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// BackfillTranscriptions handles POST /ai/backfill-transcriptions. The body
// is optional.
func (h *AIHandler) BackfillTranscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req BackfillTranscriptionsRequest
	if !h.decodeAndValidate(w, r, &req, true) {
		return
	}
	deckID, err := parseOptionalUUID("deck_id", req.DeckID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	updated, err := h.service.BackfillTranscriptions(r.Context(), userID, deckID, req.Limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to backfill transcriptions")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, BackfillTranscriptionsResponse{Updated: updated})
}

// Synonyms handles GET /ai/synonyms?word=&deck_id=&limit=.
func (h *AIHandler) Synonyms(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	deckID, err := parseUUID("deck_id", q.Get("deck_id"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := queryInt(r, "limit", maxSynonymsLimit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.service.DeckSynonyms(r.Context(), userID, deckID, q.Get("word"), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get synonyms")
		return
	}

	resp := SynonymsResponse{
		Synonyms:    result.Synonyms,
		CardsInDeck: make([]SimilarWordItem, 0, len(result.CardsInDeck)),
	}
	if resp.Synonyms == nil {
		resp.Synonyms = []string{}
	}
	for _, c := range result.CardsInDeck {
		resp.CardsInDeck = append(resp.CardsInDeck, cardToItem(c, nil))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// SimilarWords handles GET /ai/similar-words?word=&deck_id=&limit=. A deck
// given here is excluded from the results.
func (h *AIHandler) SimilarWords(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	deckID, err := parseOptionalUUID("deck_id", q.Get("deck_id"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := queryInt(r, "limit", maxSimilarLimit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	similar, err := h.service.SimilarWords(r.Context(), userID, q.Get("word"), deckID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to find similar words")
		return
	}

	items := make([]SimilarWordItem, 0, len(similar))
	for _, s := range similar {
		distance := s.Distance
		items = append(items, cardToItem(&s.Card, &distance))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, items)
}

// SuggestSynonymGroups handles POST /ai/synonym-groups/suggest?deck_id=&limit=.
func (h *AIHandler) SuggestSynonymGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	deckID, err := parseUUID("deck_id", r.URL.Query().Get("deck_id"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := queryInt(r, "limit", maxSuggestLimit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	groups, err := h.service.SuggestSynonymGroups(r.Context(), userID, deckID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to suggest synonym groups")
		return
	}

	resp := SuggestSynonymGroupsResponse{Groups: make([]SynonymGroupItem, 0, len(groups))}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, SynonymGroupItem{Words: g.Words, CardIDs: g.ItemIDs})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ApplySynonymGroups handles POST /ai/synonym-groups/apply?deck_id=.
func (h *AIHandler) ApplySynonymGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	deckID, err := parseUUID("deck_id", r.URL.Query().Get("deck_id"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req ApplySynonymGroupsRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}

	groups := make([][]uuid.UUID, len(req.Groups))
	for i, g := range req.Groups {
		groups[i] = make([]uuid.UUID, 0, len(g))
		for _, raw := range g {
			id, err := parseUUID("groups", raw)
			if err != nil {
				HandleAPIError(w, r, err, "")
				return
			}
			groups[i] = append(groups[i], id)
		}
	}

	updated, err := h.service.ApplySynonymGroups(r.Context(), userID, deckID, groups)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to apply synonym groups")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ApplySynonymGroupsResponse{Updated: updated})
}

// decodeAndValidate decodes the JSON body into v and validates it, writing a
// 400 response on failure. With optional set, an empty body leaves v at its
// zero value.
func (h *AIHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if err := shared.DecodeJSON(w, r, v); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			log.Warn("invalid request format", slog.String("error", redact.Error(err)))
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return false
		}
	}

	if err := shared.ValidateRequest(v); err != nil {
		log.Warn("validation error", slog.String("error", redact.Error(err)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

func enrichedToResponse(e service.EnrichedWord) EnrichWordResponse {
	senses := make([]SenseResponse, len(e.Entry.Senses))
	for i, s := range e.Entry.Senses {
		senses[i] = SenseResponse{
			PartOfSpeech: string(s.PartOfSpeech),
			Translation:  s.Translation,
			Example:      s.Example,
		}
	}
	return EnrichWordResponse{
		Word:             e.Entry.Word,
		Translation:      e.Entry.PrimaryTranslation(),
		Example:          e.Entry.PrimaryExample(),
		PartOfSpeech:     string(e.Entry.PrimaryPartOfSpeech()),
		Transcription:    e.Entry.Transcription,
		PronunciationURL: e.PronunciationURL,
		Senses:           senses,
	}
}

func cardToItem(c *domain.Card, distance *float64) SimilarWordItem {
	return SimilarWordItem{
		CardID:      c.ID.String(),
		Word:        c.Word,
		Translation: c.Translation,
		Example:     c.Example,
		Distance:    distance,
	}
}
