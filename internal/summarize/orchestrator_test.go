package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synevola/synevola/internal/feedback"
	"github.com/synevola/synevola/pkg/llm"
)

func testConfig() Config {
	return Config{
		MaxTokens:     50,
		OverlapTokens: 0,
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
		Concurrency:   5,
	}
}

func TestNewOrchestratorValidation(t *testing.T) {
	var confErr *ConfigurationError

	_, err := NewOrchestrator(&llm.MockBackend{}, Config{MaxTokens: 50, OverlapTokens: 50}, nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &confErr))

	_, err = NewOrchestrator(&llm.MockBackend{}, Config{MaxTokens: 50, Mode: Mode("bogus")}, nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &confErr))
}

func TestModeForBoundary(t *testing.T) {
	o, err := NewOrchestrator(&llm.MockBackend{}, testConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, ModeDirect, o.ModeFor(words(49)))
	assert.Equal(t, ModeDirect, o.ModeFor(words(50)), "text at exactly the budget stays direct")
	assert.Equal(t, ModeChunked, o.ModeFor(words(51)), "one token over the budget goes chunked")
}

func TestModeForExplicitOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeChunked
	o, err := NewOrchestrator(&llm.MockBackend{}, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeChunked, o.ModeFor(words(3)))
}

func TestSummarizeDirect(t *testing.T) {
	backend := &llm.MockBackend{
		CompleteFn: func(call int, req llm.CompletionRequest) (string, error) {
			return "résumé direct", nil
		},
	}
	o, err := NewOrchestrator(backend, testConfig(), nil)
	require.NoError(t, err)

	result, err := o.Summarize(context.Background(), words(20))
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, result.Mode)
	assert.Equal(t, "résumé direct", result.FinalSummary)
	assert.Empty(t, result.ChunkSummaries)
	assert.Equal(t, 1, backend.Calls())
}

// scriptedBackend answers chunk prompts with a partial tagged by block
// number, and the synthesis prompt with "final". failBloc, when non-zero,
// fails that block's call failTimes times before succeeding.
func scriptedBackend(total, failBloc, failTimes int, failErr error) *llm.MockBackend {
	var mu sync.Mutex
	failures := 0
	return &llm.MockBackend{
		CompleteFn: func(call int, req llm.CompletionRequest) (string, error) {
			if strings.Contains(req.UserPrompt, "résumés des blocs") {
				return "final", nil
			}
			for i := 1; i <= total; i++ {
				if !strings.Contains(req.UserPrompt, fmt.Sprintf("bloc %d/%d", i, total)) {
					continue
				}
				if i == failBloc {
					mu.Lock()
					failed := failures < failTimes
					if failed {
						failures++
					}
					mu.Unlock()
					if failed {
						return "", failErr
					}
				}
				return fmt.Sprintf("partial-%d", i), nil
			}
			return "", fmt.Errorf("unexpected prompt: %s", req.UserPrompt)
		},
	}
}

func TestSummarizeChunkedTransientRetry(t *testing.T) {
	// 250 tokens over a 50-token budget with no overlap is 5 chunks. Block 3
	// (chunk index 2) fails once with a transient error, then succeeds.
	transient := &llm.BackendUnavailableError{Endpoint: "http://localhost:1234", Err: errors.New("refused")}
	backend := scriptedBackend(5, 3, 1, transient)

	bus := feedback.NewBus()
	var events []feedback.EventType
	var mu sync.Mutex
	bus.Subscribe(func(e feedback.Event) {
		mu.Lock()
		events = append(events, e.Type)
		mu.Unlock()
	})

	o, err := NewOrchestrator(backend, testConfig(), bus)
	require.NoError(t, err)

	result, err := o.Summarize(context.Background(), words(250))
	require.NoError(t, err)

	assert.Equal(t, ModeChunked, result.Mode)
	assert.Equal(t, []string{"partial-1", "partial-2", "partial-3", "partial-4", "partial-5"}, result.ChunkSummaries)
	assert.Equal(t, "final", result.FinalSummary)
	// 5 chunk calls, 1 retried, 1 synthesis
	assert.Equal(t, 7, backend.Calls())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, events, feedback.EventChunkStarted)
	assert.Contains(t, events, feedback.EventChunkCompleted)
	assert.Contains(t, events, feedback.EventSynthesisBegan)
}

func TestSummarizeChunkedPersistentFailure(t *testing.T) {
	transient := &llm.BackendUnavailableError{Endpoint: "http://localhost:1234", Err: errors.New("refused")}
	backend := scriptedBackend(5, 3, 100, transient)

	o, err := NewOrchestrator(backend, testConfig(), nil)
	require.NoError(t, err)

	result, err := o.Summarize(context.Background(), words(250))
	require.Error(t, err)
	assert.Nil(t, result, "no summary is produced when a chunk keeps failing")

	var sumErr *SummarizationError
	require.True(t, errors.As(err, &sumErr))
	assert.Equal(t, 2, sumErr.ChunkIndex)

	var backendErr *llm.BackendUnavailableError
	assert.True(t, errors.As(err, &backendErr))
}

func TestSummarizeDirectNonTransientNoRetry(t *testing.T) {
	backend := &llm.MockBackend{
		CompleteFn: func(call int, req llm.CompletionRequest) (string, error) {
			return "", &llm.ContextOverflowError{Detail: "prompt exceeds context window"}
		},
	}
	o, err := NewOrchestrator(backend, testConfig(), nil)
	require.NoError(t, err)

	_, err = o.Summarize(context.Background(), words(20))
	require.Error(t, err)

	var sumErr *SummarizationError
	require.True(t, errors.As(err, &sumErr))
	assert.Equal(t, -1, sumErr.ChunkIndex)

	var overflow *llm.ContextOverflowError
	assert.True(t, errors.As(err, &overflow))
	assert.Equal(t, 1, backend.Calls(), "non-transient errors are not retried")
}

func TestSummarizeRecursiveReduce(t *testing.T) {
	// A 10-token budget splits 22 tokens into 3 chunks. Each partial is 3
	// tokens, so the headed concatenation (18 tokens) overflows the budget
	// and is re-chunked into 2 blocks before synthesis.
	backend := &llm.MockBackend{
		CompleteFn: func(call int, req llm.CompletionRequest) (string, error) {
			switch {
			case strings.Contains(req.UserPrompt, "résumés des blocs"):
				return "final", nil
			case strings.Contains(req.UserPrompt, "/3"):
				return "a b c", nil
			case strings.Contains(req.UserPrompt, "/2"):
				return "x", nil
			}
			return "", fmt.Errorf("unexpected prompt: %s", req.UserPrompt)
		},
	}

	cfg := testConfig()
	cfg.MaxTokens = 10
	o, err := NewOrchestrator(backend, cfg, nil)
	require.NoError(t, err)

	result, err := o.Summarize(context.Background(), words(22))
	require.NoError(t, err)
	assert.Equal(t, "final", result.FinalSummary)
	assert.Equal(t, []string{"a b c", "a b c", "a b c"}, result.ChunkSummaries,
		"chunk summaries report the first mapping pass")
	assert.Equal(t, 6, backend.Calls(), "3 map calls, 2 re-map calls, 1 synthesis")
}

func TestSummarizeCancellation(t *testing.T) {
	backend := &llm.MockBackend{}
	o, err := NewOrchestrator(backend, testConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.Summarize(ctx, words(20))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var sumErr *SummarizationError
	assert.False(t, errors.As(err, &sumErr), "cancellation is not a summarization failure")
}
