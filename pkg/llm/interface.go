package llm

import "context"

// CompletionRequest carries one prompt to the text-completion backend
type CompletionRequest struct {
	SystemPrompt      string
	UserPrompt        string
	Temperature       float64
	MaxResponseTokens int
}

// Backend is the interface for local text-completion services. It is an
// opaque function with latency and a context-window limit; callers own
// retries and concurrency bounds.
type Backend interface {
	// Complete sends one prompt and returns the generated text
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Models lists the model identifiers the service has loaded.
	// Doubles as a health probe: an error means the service is unreachable.
	Models(ctx context.Context) ([]string, error)

	// Name identifies the implementation for logging
	Name() string
}
