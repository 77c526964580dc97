// Package flow provides shared test helpers for flow tests.
package flow

import (
	"context"
	"sync"

	"github.com/openai/openai-go"
)

// MockGenAIClient is a scripted genai.ClientInterface for tests. Each call
// returns the next queued response; when the queue is exhausted the last
// response repeats.
type MockGenAIClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Calls     [][]openai.ChatCompletionMessageParamUnion
	next      int
}

// GenerateWithMessages records the call and returns the next scripted response.
func (m *MockGenAIClient) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, messages)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.next
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.next++
	return m.Responses[idx], nil
}

// CallCount returns how many times the mock was invoked.
func (m *MockGenAIClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
