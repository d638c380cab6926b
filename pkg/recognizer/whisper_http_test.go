package recognizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "consult.wav")
	require.NoError(t, os.WriteFile(path, []byte("riff"), 0600))
	return path
}

func TestWhisperClientRecognize(t *testing.T) {
	var gotModel, gotLanguage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transcribe", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")

		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{
			Segments: []Segment{
				{Start: 0, End: 2.5, Text: "Bonjour"},
				{Start: 2.5, End: 5, Text: "Bonjour docteur"},
			},
			Language: "fr",
		})
	}))
	defer server.Close()

	client := NewWhisperClient(server.URL)
	result, err := client.Recognize(context.Background(), tempAudioFile(t), Options{
		ModelSize: "medium",
		Language:  "fr",
	})
	require.NoError(t, err)

	assert.Equal(t, "medium", gotModel)
	assert.Equal(t, "fr", gotLanguage)
	assert.Equal(t, "fr", result.Language)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, "Bonjour", result.Segments[0].Text)
	assert.Equal(t, 2.5, result.Segments[1].Start)
}

func TestWhisperClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unsupported audio", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewWhisperClient(server.URL)
	_, err := client.Recognize(context.Background(), tempAudioFile(t), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio")
}

func TestWhisperClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ok, err := NewWhisperClient(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
