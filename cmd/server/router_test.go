package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/mocks"
	"github.com/lexicard/lexicard-api/internal/platform/metrics"
	"github.com/lexicard/lexicard-api/internal/service"
	"github.com/lexicard/lexicard-api/internal/store"
)

// echoService answers EnrichWord and fails everything else.
type echoService struct{}

func (echoService) GenerateWords(context.Context, uuid.UUID, uuid.UUID, string, string, int) (int, error) {
	return 0, store.ErrDeckNotFound
}

func (echoService) EnrichWord(_ context.Context, word string) (service.EnrichedWord, error) {
	return service.EnrichedWord{Entry: domain.EnrichmentEntry{Word: word}}, nil
}

func (echoService) EnrichWords(context.Context, []string) ([]service.EnrichedWord, error) {
	return nil, store.ErrDeckNotFound
}

func (echoService) BackfillTranscriptions(context.Context, uuid.UUID, *uuid.UUID, int) (int, error) {
	return 0, store.ErrDeckNotFound
}

func (echoService) DeckSynonyms(context.Context, uuid.UUID, uuid.UUID, string, int) (service.DeckSynonyms, error) {
	return service.DeckSynonyms{}, store.ErrDeckNotFound
}

func (echoService) SuggestSynonymGroups(context.Context, uuid.UUID, uuid.UUID, int) ([]domain.SynonymGroup, error) {
	return nil, store.ErrDeckNotFound
}

func (echoService) ApplySynonymGroups(context.Context, uuid.UUID, uuid.UUID, [][]uuid.UUID) (int64, error) {
	return 0, store.ErrDeckNotFound
}

func (echoService) SimilarWords(context.Context, uuid.UUID, string, *uuid.UUID, int) ([]store.SimilarCard, error) {
	return nil, store.ErrDeckNotFound
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newRouter(routerDeps{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		validator: mocks.NewMockJWTServiceForUser("good", uuid.New()),
		service:   echoService{},
		metrics:   metrics.NewRegistry(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func request(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRouterHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := request(t, http.MethodGet, srv.URL+"/health", "", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Header.Get("X-Trace-ID"), 32)
}

func TestRouterProtectsAIRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp := request(t, http.MethodPost, srv.URL+"/api/ai/enrich-word", "", `{"word":"cat"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/api/ai/enrich-word", "bad", `{"word":"cat"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/api/ai/enrich-word", "good", `{"word":"cat"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/api/ai/generate-words", "good",
		`{"deck_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouterExposesMetrics(t *testing.T) {
	srv := newTestServer(t)
	request(t, http.MethodGet, srv.URL+"/health", "", "")

	resp := request(t, http.MethodGet, srv.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `lexicard_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
