package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/lexicard/lexicard-api/internal/domain"
	"github.com/lexicard/lexicard-api/internal/generation"
)

type fakeModels struct {
	generateResp *genai.GenerateContentResponse
	generateErr  error
	embedResp    *genai.EmbedContentResponse
	embedErr     error

	gotModel    string
	gotContents []*genai.Content
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	_ *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotContents = contents
	return f.generateResp, f.generateErr
}

func (f *fakeModels) EmbedContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	_ *genai.EmbedContentConfig,
) (*genai.EmbedContentResponse, error) {
	f.gotModel = model
	f.gotContents = contents
	return f.embedResp, f.embedErr
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content, FinishReason: genai.FinishReasonStop}},
	}
}

func TestClientCallSuccess(t *testing.T) {
	models := &fakeModels{generateResp: textResponse(`{"transcription": `, `"bʊk"}`)}
	c := &Client{models: models}

	out := c.Call(context.Background(), "gemini-2.0-flash", "describe book")

	assert.Equal(t, generation.OutcomeSuccess, out.Kind)
	assert.Equal(t, `{"transcription": "bʊk"}`, out.Text)
	assert.Equal(t, "gemini-2.0-flash", models.gotModel)
	require.Len(t, models.gotContents, 1)
	assert.Equal(t, "describe book", models.gotContents[0].Parts[0].Text)
	assert.Equal(t, ProviderName, c.Name())
}

func TestClientCallFailures(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{name: "nil response"},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}},
		{name: "blank text", resp: textResponse("  ")},
		{
			name: "safety",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content:      &genai.Content{Parts: []*genai.Part{{Text: "partial"}}},
				FinishReason: genai.FinishReasonSafety,
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{models: &fakeModels{generateResp: tt.resp}}
			out := c.Call(context.Background(), "m", "p")
			assert.Equal(t, generation.OutcomeFailure, out.Kind)
			assert.NotEmpty(t, out.Message)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  generation.OutcomeKind
		wantRetry time.Duration
	}{
		{
			name:      "api error 429 with hint",
			err:       genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded. Please retry in 17s."},
			wantKind:  generation.OutcomeQuotaExhausted,
			wantRetry: 22 * time.Second,
		},
		{
			name:      "pointer api error by status",
			err:       fmt.Errorf("call: %w", &genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED", Message: "limit"}),
			wantKind:  generation.OutcomeQuotaExhausted,
			wantRetry: generation.DefaultRetryAfter + generation.RetryMargin,
		},
		{
			name:     "api error 500",
			err:      genai.APIError{Code: 500, Status: "INTERNAL", Message: "boom"},
			wantKind: generation.OutcomeFailure,
		},
		{
			name:      "plain quota message",
			err:       errors.New("You exceeded your current quota, retry in 2.5s"),
			wantKind:  generation.OutcomeQuotaExhausted,
			wantRetry: 7500 * time.Millisecond,
		},
		{
			name:     "network error",
			err:      errors.New("dial tcp: connection refused"),
			wantKind: generation.OutcomeFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := classify(tt.err)
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantRetry, out.RetryAfter)
			assert.NotEmpty(t, out.Message)
		})
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), " ")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewEmbedder(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestEmbedderEmbed(t *testing.T) {
	vec := make([]float32, domain.EmbeddingDimensions)
	vec[0] = 0.5
	models := &fakeModels{embedResp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: vec}},
	}}
	e := newEmbedder(models, "")

	got, err := e.Embed(context.Background(), " apple ")
	require.NoError(t, err)
	assert.Equal(t, vec, got)
	assert.Equal(t, DefaultEmbeddingModel, models.gotModel)
	assert.Equal(t, "apple", models.gotContents[0].Parts[0].Text)
}

func TestEmbedderErrors(t *testing.T) {
	t.Run("blank text", func(t *testing.T) {
		_, err := newEmbedder(&fakeModels{}, "m").Embed(context.Background(), "  ")
		assert.ErrorIs(t, err, domain.ErrEmptyWord)
	})

	t.Run("api error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := newEmbedder(&fakeModels{embedErr: boom}, "m").Embed(context.Background(), "x")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no embeddings", func(t *testing.T) {
		_, err := newEmbedder(&fakeModels{embedResp: &genai.EmbedContentResponse{}}, "m").Embed(context.Background(), "x")
		assert.ErrorIs(t, err, ErrEmptyEmbedding)
	})

	t.Run("wrong size", func(t *testing.T) {
		models := &fakeModels{embedResp: &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 2, 3}}},
		}}
		_, err := newEmbedder(models, "m").Embed(context.Background(), "x")
		assert.ErrorIs(t, err, ErrEmptyEmbedding)
	})
}
