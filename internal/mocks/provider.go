package mocks

import (
	"context"
	"sync"

	"github.com/lexicard/lexicard-api/internal/generation"
)

var _ generation.Provider = (*MockProvider)(nil)

// ProviderCall is one recorded MockProvider.Call.
type ProviderCall struct {
	Model  string
	Prompt string
}

// MockProvider implements generation.Provider.
type MockProvider struct {
	ProviderName string
	CallFn       func(ctx context.Context, model, prompt string) generation.Outcome

	// Outcomes maps model names to canned outcomes when CallFn is nil.
	// Unknown models fail.
	Outcomes map[string]generation.Outcome

	mu    sync.Mutex
	calls []ProviderCall
}

// NewMockProviderWithText returns a provider whose every model replies text.
func NewMockProviderWithText(name, text string) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		CallFn: func(context.Context, string, string) generation.Outcome {
			return generation.Success(text)
		},
	}
}

// Name implements generation.Provider.
func (m *MockProvider) Name() string {
	return m.ProviderName
}

// Call implements generation.Provider.
func (m *MockProvider) Call(ctx context.Context, model, prompt string) generation.Outcome {
	m.mu.Lock()
	m.calls = append(m.calls, ProviderCall{Model: model, Prompt: prompt})
	m.mu.Unlock()

	if m.CallFn != nil {
		return m.CallFn(ctx, model, prompt)
	}
	if out, ok := m.Outcomes[model]; ok {
		return out
	}
	return generation.Failure("mock has no outcome for " + model)
}

// Calls returns the recorded calls in order.
func (m *MockProvider) Calls() []ProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProviderCall(nil), m.calls...)
}
