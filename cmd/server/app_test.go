package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicard/lexicard-api/internal/config"
	"github.com/lexicard/lexicard-api/internal/generation"
	"github.com/lexicard/lexicard-api/internal/mocks"
)

func TestBuildBackendsKeepsUnconfiguredProvidersInOrder(t *testing.T) {
	cfg := config.LLMConfig{
		GeminiModels:     []string{"gemini-2.0-flash"},
		AnthropicModels:  []string{"claude-3-5-haiku-latest"},
		ProviderPriority: []string{config.ProviderAnthropic, config.ProviderGemini},
		LockRotation:     true,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	backends, err := buildBackends(context.Background(), cfg, log, nil)
	require.NoError(t, err)

	require.Len(t, backends, 2)
	assert.Equal(t, config.ProviderAnthropic, backends[0].Name)
	assert.Equal(t, config.ProviderGemini, backends[1].Name)
	for _, b := range backends {
		assert.Nil(t, b.Provider)
		assert.Nil(t, b.Rotation)
	}

	_, err = generation.NewOrchestrator(backends).Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, generation.ErrNotConfigured)
	assert.NotErrorIs(t, err, generation.ErrAllProvidersExhausted)
}

func TestBuildBackendsCreatesAnthropicRotation(t *testing.T) {
	cfg := config.LLMConfig{
		AnthropicAPIKey:    "test-key",
		AnthropicModels:    []string{"model-a", "model-b"},
		AnthropicMaxTokens: 1024,
		ProviderPriority:   []string{config.ProviderAnthropic},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	backends, err := buildBackends(context.Background(), cfg, log, nil)
	require.NoError(t, err)

	require.Len(t, backends, 1)
	require.NotNil(t, backends[0].Provider)
	require.NotNil(t, backends[0].Rotation)
	assert.Equal(t, []string{"model-a", "model-b"}, backends[0].Rotation.Models())
	assert.Equal(t, "model-a", backends[0].Rotation.Current())
}

func TestUnconfiguredBackendFallsThroughToNextProvider(t *testing.T) {
	cfg := config.LLMConfig{
		GeminiModels:     []string{"gemini-2.0-flash"},
		ProviderPriority: []string{config.ProviderGemini},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	backends, err := buildBackends(context.Background(), cfg, log, nil)
	require.NoError(t, err)

	claude := mocks.NewMockProviderWithText(config.ProviderAnthropic, "reply")
	rot, err := generation.NewRotation(config.ProviderAnthropic, []string{"claude-test"})
	require.NoError(t, err)
	backends = append(backends, generation.Backend{Provider: claude, Rotation: rot})

	text, err := generation.NewOrchestrator(backends).Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply", text)
	assert.Len(t, claude.Calls(), 1)
}
