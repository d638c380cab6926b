package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/synevola/synevola/internal/feedback"
	"github.com/synevola/synevola/internal/metrics"
	"github.com/synevola/synevola/pkg/llm"
)

// Mode selects the summarization strategy
type Mode string

const (
	// ModeAuto picks direct or chunked from the estimated input length
	ModeAuto Mode = "auto"

	// ModeDirect issues one backend call with the full text
	ModeDirect Mode = "direct"

	// ModeChunked summarizes each chunk, then synthesizes the partials
	ModeChunked Mode = "chunked"
)

// Config enumerates the orchestrator settings
type Config struct {
	Mode              Mode
	MaxTokens         int
	OverlapTokens     int
	Temperature       float64
	MaxResponseTokens int
	SystemPrompt      string
	UserPrompt        string

	// MaxRetries is the number of additional attempts after a transient
	// failure; Concurrency bounds simultaneous per-chunk calls so the
	// backend's admission control is respected.
	MaxRetries  int
	RetryDelay  time.Duration
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.UserPrompt == "" {
		c.UserPrompt = DefaultUserPrompt
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxResponseTokens == 0 {
		c.MaxResponseTokens = 1024
	}
	return c
}

// Result is the outcome of one summarization. ChunkSummaries is empty in
// direct mode and ordered by chunk index otherwise.
type Result struct {
	Mode           Mode     `json:"mode"`
	ChunkSummaries []string `json:"chunk_summaries,omitempty"`
	FinalSummary   string   `json:"final_summary"`
}

// Orchestrator drives the summarization backend in direct or map-reduce
// mode, with bounded retries and bounded concurrency
type Orchestrator struct {
	backend llm.Backend
	cfg     Config
	bus     *feedback.Bus
	logger  *logrus.Entry
}

// NewOrchestrator validates the configuration and returns an orchestrator.
// bus may be nil when no progress reporting is wanted.
func NewOrchestrator(backend llm.Backend, cfg Config, bus *feedback.Bus) (*Orchestrator, error) {
	cfg = cfg.withDefaults()
	if err := validateBounds(cfg.MaxTokens, cfg.OverlapTokens); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeAuto, ModeDirect, ModeChunked:
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	return &Orchestrator{
		backend: backend,
		cfg:     cfg,
		bus:     bus,
		logger:  logrus.WithField("component", "summarize"),
	}, nil
}

// ModeFor resolves the effective mode for a text. Pure: depends only on the
// estimated input size and the configuration, never on backend behavior.
func (o *Orchestrator) ModeFor(text string) Mode {
	if o.cfg.Mode != ModeAuto {
		return o.cfg.Mode
	}
	if EstimateTokens(text) <= o.cfg.MaxTokens {
		return ModeDirect
	}
	return ModeChunked
}

// Summarize condenses text into a Result. A chunk whose backend call fails
// after all retries aborts the whole run: a silently dropped chunk would
// misrepresent clinical content.
func (o *Orchestrator) Summarize(ctx context.Context, text string) (*Result, error) {
	mode := o.ModeFor(text)
	o.logger.WithFields(logrus.Fields{
		"mode":             mode,
		"estimated_tokens": EstimateTokens(text),
		"max_tokens":       o.cfg.MaxTokens,
	}).Info("Starting summarization")

	if mode == ModeDirect {
		summary, err := o.completeWithRetry(ctx, directPrompt(o.cfg.UserPrompt, text), -1)
		if err != nil {
			return nil, err
		}
		return &Result{Mode: ModeDirect, FinalSummary: summary}, nil
	}

	chunks, err := Chunk(text, o.cfg.MaxTokens, o.cfg.OverlapTokens)
	if err != nil {
		return nil, err
	}

	partials, err := o.mapChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	final, err := o.reduce(ctx, partials)
	if err != nil {
		return nil, err
	}

	return &Result{Mode: ModeChunked, ChunkSummaries: partials, FinalSummary: final}, nil
}

// mapChunks summarizes every chunk, up to Concurrency at a time. Results
// are assembled in chunk order regardless of completion order.
func (o *Orchestrator) mapChunks(ctx context.Context, chunks []TextChunk) ([]string, error) {
	partials := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, chunk := range chunks {
		g.Go(func() error {
			start := time.Now()
			o.bus.Publish(feedback.Event{
				Type:  feedback.EventChunkStarted,
				Stage: "summarizing",
				Data:  feedback.ChunkProgressData{ChunkIndex: chunk.Index, ChunkCount: len(chunks)},
			})

			prompt := chunkPrompt(o.cfg.UserPrompt, chunk.Index+1, len(chunks), chunk.Text)
			summary, err := o.completeWithRetry(gctx, prompt, chunk.Index)
			if err != nil {
				return err
			}
			partials[chunk.Index] = summary

			o.bus.Publish(feedback.Event{
				Type:  feedback.EventChunkCompleted,
				Stage: "summarizing",
				Data: feedback.ChunkProgressData{
					ChunkIndex:  chunk.Index,
					ChunkCount:  len(chunks),
					ProcessTime: time.Since(start),
				},
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

// reduce synthesizes one summary from the ordered partials. When their
// concatenation itself exceeds the token budget it is re-chunked and
// summarized again, shrinking each round until one synthesis call fits.
func (o *Orchestrator) reduce(ctx context.Context, partials []string) (string, error) {
	for {
		headed := make([]string, len(partials))
		for i, p := range partials {
			headed[i] = partialHeading(i+1, p)
		}
		joined := strings.Join(headed, "\n\n")

		if EstimateTokens(joined) <= o.cfg.MaxTokens || len(partials) == 1 {
			o.bus.Publish(feedback.Event{Type: feedback.EventSynthesisBegan, Stage: "summarizing"})
			return o.completeWithRetry(ctx, synthesisPrompt(o.cfg.UserPrompt, joined), -1)
		}

		o.logger.WithFields(logrus.Fields{
			"partials":         len(partials),
			"estimated_tokens": EstimateTokens(joined),
		}).Info("Partial summaries exceed token budget, re-chunking")

		chunks, err := Chunk(joined, o.cfg.MaxTokens, o.cfg.OverlapTokens)
		if err != nil {
			return "", err
		}
		partials, err = o.mapChunks(ctx, chunks)
		if err != nil {
			return "", err
		}
	}
}

// completeWithRetry issues one backend call with bounded retries and
// growing backoff on transient failures. chunkIndex is -1 for direct and
// synthesis calls.
func (o *Orchestrator) completeWithRetry(ctx context.Context, userPrompt string, chunkIndex int) (string, error) {
	req := llm.CompletionRequest{
		SystemPrompt:      o.cfg.SystemPrompt,
		UserPrompt:        userPrompt,
		Temperature:       o.cfg.Temperature,
		MaxResponseTokens: o.cfg.MaxResponseTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordBackendCall(o.backend.Name(), "retried")
			select {
			case <-time.After(time.Duration(attempt) * o.cfg.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := o.backend.Complete(ctx, req)
		if err == nil {
			metrics.RecordBackendCall(o.backend.Name(), "success")
			return text, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if !llm.IsTransient(err) {
			break
		}
		o.logger.WithError(err).WithFields(logrus.Fields{
			"chunk":   chunkIndex,
			"attempt": attempt + 1,
		}).Warn("Backend call failed, retrying")
	}

	metrics.RecordBackendCall(o.backend.Name(), "failed")
	return "", &SummarizationError{ChunkIndex: chunkIndex, Err: lastErr}
}
