package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// APIMode selects which completion endpoint the client uses
type APIMode string

const (
	// APIModeAuto tries chat completions first and falls back to plain
	// completions when the chat endpoint rejects the request
	APIModeAuto APIMode = "auto"

	// APIModeChat uses /v1/chat/completions only
	APIModeChat APIMode = "chat"

	// APIModeCompletions uses /v1/completions only
	APIModeCompletions APIMode = "completions"
)

// LMStudioClient talks to a local LM Studio (or any OpenAI-compatible)
// endpoint. No audio or text leaves the machine as long as the endpoint
// is local, which is the whole point of this deployment.
type LMStudioClient struct {
	baseURL string
	apiKey  string
	model   string
	mode    APIMode
	client  *http.Client
}

// NewLMStudioClient creates a backend client for the given endpoint and
// model. An empty apiKey falls back to the conventional "lm-studio" key.
func NewLMStudioClient(baseURL, apiKey, model string, mode APIMode) *LMStudioClient {
	if apiKey == "" {
		apiKey = "lm-studio"
	}
	if mode == "" {
		mode = APIModeAuto
	}
	return &LMStudioClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		mode:    mode,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Stream      bool    `json:"stream"`
}

type apiChoice struct {
	Text    string `json:"text"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Complete sends one prompt, honoring the configured API mode
func (c *LMStudioClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var chatErr error
	if c.mode == APIModeAuto || c.mode == APIModeChat {
		text, err := c.chatComplete(ctx, req)
		if err == nil {
			return text, nil
		}
		if c.mode == APIModeChat || !retryableOnFallback(err) {
			return "", err
		}
		chatErr = err
		logrus.WithError(err).Debug("Chat endpoint failed, falling back to completions")
	}

	text, err := c.plainComplete(ctx, req)
	if err != nil {
		if chatErr != nil {
			return "", fmt.Errorf("chat endpoint failed (%v); completions endpoint failed: %w", chatErr, err)
		}
		return "", err
	}
	return text, nil
}

// retryableOnFallback reports whether the completions endpoint is worth
// trying after a chat failure. Overflow and cancellation fail both
// endpoints identically, so fallback would only mask the real error.
func retryableOnFallback(err error) bool {
	var overflow *ContextOverflowError
	if errors.As(err, &overflow) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func (c *LMStudioClient) chatComplete(ctx context.Context, req CompletionRequest) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: strings.TrimSpace(req.SystemPrompt)},
			{Role: "user", Content: strings.TrimSpace(req.UserPrompt)},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxResponseTokens,
	}
	out, err := c.post(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrMalformedResponse
	}
	return out.Choices[0].Message.Content, nil
}

func (c *LMStudioClient) plainComplete(ctx context.Context, req CompletionRequest) (string, error) {
	merged := fmt.Sprintf("### System:\n%s\n\n### User:\n%s\n\n### Assistant:\n",
		strings.TrimSpace(req.SystemPrompt), strings.TrimSpace(req.UserPrompt))
	payload := completionRequest{
		Model:       c.model,
		Prompt:      merged,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxResponseTokens,
	}
	out, err := c.post(ctx, "/v1/completions", payload)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Text == "" {
		return "", ErrMalformedResponse
	}
	return out.Choices[0].Text, nil
}

func (c *LMStudioClient) post(ctx context.Context, path string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &BackendUnavailableError{Endpoint: c.baseURL + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		msg := strings.TrimSpace(string(detail))
		if isContextOverflow(resp.StatusCode, msg) {
			return nil, &ContextOverflowError{Detail: msg}
		}
		return nil, fmt.Errorf("llm: %s %s: %s", path, resp.Status, msg)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}

// isContextOverflow matches the error bodies LM Studio and llama.cpp
// servers produce when a prompt exceeds the loaded context length
func isContextOverflow(status int, body string) bool {
	if status != http.StatusBadRequest {
		return false
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "context length") ||
		strings.Contains(lower, "context_length") ||
		strings.Contains(lower, "context window") ||
		strings.Contains(lower, "too many tokens")
}

// Models lists loaded model IDs; an error means the service is down
func (c *LMStudioClient) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &BackendUnavailableError{Endpoint: c.baseURL + "/v1/models", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: /v1/models %s", resp.Status)
	}

	var out modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

func (c *LMStudioClient) Name() string {
	return "lmstudio"
}
