package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/lexicard/lexicard-api/internal/generation"
)

// ProviderName is the name Client reports to the orchestrator.
const ProviderName = "gemini"

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini API key cannot be empty")

// modelsAPI is the part of genai.Models the package uses.
type modelsAPI interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
	EmbedContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.EmbedContentConfig,
	) (*genai.EmbedContentResponse, error)
}

// Client is a generation.Provider backed by the Gemini API.
type Client struct {
	models modelsAPI
}

var _ generation.Provider = (*Client)(nil)

// New creates a Client for the Gemini developer API.
func New(ctx context.Context, apiKey string) (*Client, error) {
	models, err := newModels(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &Client{models: models}, nil
}

func newModels(ctx context.Context, apiKey string) (modelsAPI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client.Models, nil
}

// Name implements generation.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// Call implements generation.Provider. A reply with no text, including one
// blocked by safety filters, is a failure.
func (c *Client) Call(ctx context.Context, model, prompt string) generation.Outcome {
	resp, err := c.models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return classify(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return generation.Failure(fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
		}
		return generation.Failure("empty response")
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return generation.Failure("response blocked by safety filters")
	}

	text := strings.TrimSpace(candidateText(cand))
	if text == "" {
		return generation.Failure(fmt.Sprintf("no text in response (finish reason %q)", cand.FinishReason))
	}
	return generation.Success(text)
}

func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// classify maps a genai error to an outcome. Quota and rate limit errors
// carry the retry delay the API suggested.
func classify(err error) generation.Outcome {
	if apiErr, ok := asAPIError(err); ok {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return generation.QuotaExhausted(generation.RetryHint(apiErr.Message), err.Error())
		}
		return generation.Failure(err.Error())
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "resource_exhausted") {
		return generation.QuotaExhausted(generation.RetryHint(msg), msg)
	}
	return generation.Failure(msg)
}

func asAPIError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}
