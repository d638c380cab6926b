package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionSuccess(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "a concise summary"}},
			},
		})
	}))
	defer server.Close()

	client := NewLMStudioClient(server.URL, "", "test-model", APIModeChat)
	text, err := client.Complete(context.Background(), CompletionRequest{
		SystemPrompt:      "be brief",
		UserPrompt:        "summarize this",
		Temperature:       0.2,
		MaxResponseTokens: 512,
	})

	require.NoError(t, err)
	assert.Equal(t, "a concise summary", text)
	assert.Equal(t, "Bearer lm-studio", gotAuth)
}

func TestAutoModeFallsBackToCompletions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			http.Error(w, "chat endpoint not supported", http.StatusNotFound)
		case "/v1/completions":
			var req completionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Contains(t, req.Prompt, "### Assistant:")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{"text": "fallback summary"}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewLMStudioClient(server.URL, "key", "m", APIModeAuto)
	text, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "fallback summary", text)
}

func TestConnectionRefusedIsBackendUnavailable(t *testing.T) {
	// Grab a port that nothing listens on
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewLMStudioClient(url, "", "m", APIModeChat)
	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})

	var unavailable *BackendUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.True(t, IsTransient(err))
}

func TestContextOverflowIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"the prompt exceeds the model's context length"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewLMStudioClient(server.URL, "", "m", APIModeAuto)
	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "enormous prompt"})

	var overflow *ContextOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.False(t, IsTransient(err))
}

func TestMalformedResponseIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewLMStudioClient(server.URL, "", "m", APIModeChat)
	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.True(t, IsTransient(err))
}

func TestModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": "mistral-7b"}, {"id": "qwen2-7b"}},
		})
	}))
	defer server.Close()

	client := NewLMStudioClient(server.URL, "", "m", APIModeAuto)
	models, err := client.Models(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"mistral-7b", "qwen2-7b"}, models)
}
