package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/lexicard/lexicard-api/internal/domain"
)

// DefaultEmbeddingModel is used when no embedding model is configured.
const DefaultEmbeddingModel = "text-embedding-004"

// ErrEmptyEmbedding is returned when the API answers without a vector of the
// expected size.
var ErrEmptyEmbedding = errors.New("gemini returned no usable embedding")

// Embedder turns short texts into domain.EmbeddingDimensions-sized vectors.
type Embedder struct {
	models modelsAPI
	model  string
}

// NewEmbedder creates an Embedder using model, or DefaultEmbeddingModel
// when model is blank.
func NewEmbedder(ctx context.Context, apiKey, model string) (*Embedder, error) {
	models, err := newModels(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return newEmbedder(models, model), nil
}

func newEmbedder(models modelsAPI, model string) *Embedder {
	if strings.TrimSpace(model) == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{models: models, model: model}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyWord
	}

	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", e.model, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ErrEmptyEmbedding
	}

	values := resp.Embeddings[0].Values
	if len(values) != domain.EmbeddingDimensions {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d",
			ErrEmptyEmbedding, len(values), domain.EmbeddingDimensions)
	}
	return values, nil
}
