// Package anthropic connects the application to Anthropic's Messages API as a
// generation.Provider.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lexicard/lexicard-api/internal/generation"
)

// ProviderName is the name Client reports to the orchestrator.
const ProviderName = "anthropic"

// DefaultMaxTokens caps replies when no limit is configured.
const DefaultMaxTokens int64 = 2048

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("anthropic API key cannot be empty")

// messagesAPI is the part of the SDK's MessageService the client uses.
type messagesAPI interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client is a generation.Provider backed by the Anthropic Messages API.
type Client struct {
	messages  messagesAPI
	maxTokens int64
}

var _ generation.Provider = (*Client)(nil)

// New creates a Client. maxTokens <= 0 uses DefaultMaxTokens. The SDK's own
// retries are disabled; the orchestrator decides what happens after a
// failure.
func New(apiKey string, maxTokens int64) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client := sdk.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return newClient(&client.Messages, maxTokens), nil
}

func newClient(messages messagesAPI, maxTokens int64) *Client {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Client{messages: messages, maxTokens: maxTokens}
}

// Name implements generation.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// Call implements generation.Provider.
func (c *Client) Call(ctx context.Context, model, prompt string) generation.Outcome {
	msg, err := c.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return classify(err)
	}
	if msg == nil {
		return generation.Failure("empty response")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return generation.Failure(fmt.Sprintf("no text in response (stop reason %q)", msg.StopReason))
	}
	return generation.Success(text)
}

// statusOverloaded is Anthropic's non-standard "overloaded_error" status.
const statusOverloaded = 529

// classify maps an SDK error to an outcome. A 429 or 529 is quota
// exhaustion; its retry-after header wins over any hint in the message.
func classify(err error) generation.Outcome {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, statusOverloaded:
			return generation.QuotaExhausted(retryAfter(apiErr), err.Error())
		}
	}
	return generation.Failure(err.Error())
}

func retryAfter(apiErr *sdk.Error) time.Duration {
	if apiErr.Response != nil {
		if v := apiErr.Response.Header.Get("retry-after"); v != "" {
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return generation.RetryAfterSeconds(seconds)
			}
		}
	}
	return generation.RetryHint(apiErr.Error())
}
