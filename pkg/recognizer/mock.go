package recognizer

import "context"

// MockRecognizer returns canned segments, for testing without a service
type MockRecognizer struct {
	Segments []Segment
	Language string
	Err      error
}

func (m *MockRecognizer) Recognize(_ context.Context, _ string, _ Options) (*Result, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &Result{Segments: m.Segments, Language: m.Language}, nil
}

func (m *MockRecognizer) Health(_ context.Context) (bool, error) {
	return true, nil
}

func (m *MockRecognizer) Name() string {
	return "mock"
}
