package summarize

import "fmt"

// ConfigurationError indicates invalid summarization or chunking settings.
// Fatal: surfaced immediately, never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "summarize: invalid configuration: " + e.Reason
}

// SummarizationError indicates a backend call that still failed after the
// retry budget. ChunkIndex identifies the failing chunk, or -1 when the
// failure was in a direct summary or the final synthesis.
type SummarizationError struct {
	ChunkIndex int
	Err        error
}

func (e *SummarizationError) Error() string {
	if e.ChunkIndex >= 0 {
		return fmt.Sprintf("summarize: chunk %d failed: %v", e.ChunkIndex, e.Err)
	}
	return fmt.Sprintf("summarize: failed: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error {
	return e.Err
}
