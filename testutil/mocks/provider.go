// Package mocks provides mock implementations for coordflow tests,
// with builder-style configuration and error injection.
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/coordflow/llm"
	"github.com/BaSui01/coordflow/types"
)

// MockProvider 可编排的 llm.Provider 实现
// 按调用顺序返回预置响应；响应耗尽后重复最后一条。
type MockProvider struct {
	mu        sync.Mutex
	name      string
	responses []string
	err       error
	requests  []*llm.ChatRequest
}

// NewMockProvider creates a mock provider named "mock".
func NewMockProvider() *MockProvider {
	return &MockProvider{name: "mock"}
}

// WithName overrides the provider name.
func (m *MockProvider) WithName(name string) *MockProvider {
	m.name = name
	return m
}

// WithResponse appends a scripted completion content.
func (m *MockProvider) WithResponse(content string) *MockProvider {
	m.responses = append(m.responses, content)
	return m
}

// WithError makes every call fail with err.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.err = err
	return m
}

func (m *MockProvider) Name() string { return m.name }

// Completion returns the next scripted response.
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}

	content := ""
	if len(m.responses) > 0 {
		idx := len(m.requests) - 1
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		content = m.responses[idx]
	}
	return &llm.ChatResponse{
		Provider: m.name,
		Choices: []llm.ChatChoice{{
			Message:      types.NewAssistantMessage(content),
			FinishReason: "stop",
		}},
	}, nil
}

// Stream emits the next scripted response as a single chunk.
func (m *MockProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	resp, err := m.Completion(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan llm.StreamChunk, 2)
	out <- llm.StreamChunk{Delta: types.Message{Role: types.RoleAssistant, Content: resp.FirstContent()}}
	out <- llm.StreamChunk{FinishReason: "stop"}
	close(out)
	return out, nil
}

// Calls returns the number of completion calls observed.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the recorded requests in call order.
func (m *MockProvider) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
