package llm

import (
	"context"
	"sync"
)

// MockBackend is a scriptable backend for tests. CompleteFn receives the
// 1-based call number so tests can fail specific calls.
type MockBackend struct {
	CompleteFn func(call int, req CompletionRequest) (string, error)
	ModelIDs   []string

	mu       sync.Mutex
	calls    int
	Requests []CompletionRequest
}

func (m *MockBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.Requests = append(m.Requests, req)
	fn := m.CompleteFn
	m.mu.Unlock()

	if fn == nil {
		return "mock summary", nil
	}
	return fn(call, req)
}

func (m *MockBackend) Models(_ context.Context) ([]string, error) {
	return m.ModelIDs, nil
}

func (m *MockBackend) Name() string {
	return "mock"
}

// Calls returns how many completions were requested
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
