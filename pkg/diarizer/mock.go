package diarizer

import "context"

// MockDiarizer returns canned turns, for testing without a service
type MockDiarizer struct {
	Turns []Turn
	Err   error
}

func (m *MockDiarizer) Diarize(_ context.Context, _ string, _ string) ([]Turn, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Turns, nil
}

func (m *MockDiarizer) Health(_ context.Context) (bool, error) {
	return true, nil
}

func (m *MockDiarizer) Name() string {
	return "mock"
}
