// Package summarize condenses a rendered transcript through a token-bounded
// text-completion backend, chunking long documents so the backend's context
// window is never exceeded.
package summarize

import (
	"fmt"
	"strings"
)

// TextChunk is one window of a longer text. Consecutive chunks share the
// trailing overlap of the previous one so a sentence split at a boundary
// keeps its context; concatenating chunks minus declared overlaps
// reconstructs the original text.
type TextChunk struct {
	Index               int
	Text                string
	OverlapWithPrevious bool
}

// EstimateTokens approximates the token length of text. Whitespace-separated
// words are a consistent, monotonic estimate; exact tokenizer compatibility
// with the backend is not required, only that longer text never estimates
// shorter.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

// Chunk splits text into windows of at most maxTokens estimated tokens,
// advancing by (maxTokens - overlapTokens) per step. The final chunk may be
// shorter; it is never discarded or padded. overlapTokens = 0 degenerates
// to a strict partition.
func Chunk(text string, maxTokens, overlapTokens int) ([]TextChunk, error) {
	if err := validateBounds(maxTokens, overlapTokens); err != nil {
		return nil, err
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := maxTokens - overlapTokens
	var chunks []TextChunk
	for start := 0; start < len(tokens); start += step {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, TextChunk{
			Index:               len(chunks),
			Text:                strings.Join(tokens[start:end], " "),
			OverlapWithPrevious: start > 0 && overlapTokens > 0,
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}

func validateBounds(maxTokens, overlapTokens int) error {
	if maxTokens <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("maxTokens must be positive, got %d", maxTokens)}
	}
	if overlapTokens < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("overlapTokens must not be negative, got %d", overlapTokens)}
	}
	if overlapTokens >= maxTokens {
		return &ConfigurationError{Reason: fmt.Sprintf("overlapTokens (%d) must be smaller than maxTokens (%d)", overlapTokens, maxTokens)}
	}
	return nil
}
