package mocks

import (
	"context"
	"errors"
)

// MockLLMService is a mock implementation of LLMService for testing
type MockLLMService struct {
	model     string
	rewrites  map[string]string
	failNext  bool
	callCount int
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		model:    "mock-llm-model",
		rewrites: make(map[string]string),
	}
}

func (m *MockLLMService) RewriteQuery(ctx context.Context, query string) (string, error) {
	m.callCount++
	if m.failNext {
		m.failNext = false
		return "", errors.New("llm unavailable")
	}
	if rewritten, ok := m.rewrites[query]; ok {
		return rewritten, nil
	}
	return query, nil
}

func (m *MockLLMService) Model() string {
	return m.model
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// Helper methods for testing

// SetRewrite registers the rewritten form returned for a query.
func (m *MockLLMService) SetRewrite(query, rewritten string) {
	m.rewrites[query] = rewritten
}

func (m *MockLLMService) SetFailNext(fail bool) {
	m.failNext = fail
}

func (m *MockLLMService) Calls() int {
	return m.callCount
}
