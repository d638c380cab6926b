package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAudioFile(t *testing.T) {
	assert.True(t, isAudioFile("consult.wav"))
	assert.True(t, isAudioFile("consult.MP3"))
	assert.True(t, isAudioFile("/some/dir/visit.flac"))
	assert.False(t, isAudioFile("notes.txt"))
	assert.False(t, isAudioFile("consult.wav.part"))
	assert.False(t, isAudioFile("consult"))
}

func TestWatcherDetectsNewRecording(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var handled []string
	handler := func(_ context.Context, path string) error {
		mu.Lock()
		handled = append(handled, path)
		mu.Unlock()
		return nil
	}

	w, err := New(dir, handler, 2)
	require.NoError(t, err)
	w.settleDelay = time.Millisecond
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	// Give the watch loop a moment before producing events
	time.Sleep(50 * time.Millisecond)

	audioPath := filepath.Join(dir, "consult.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("riff"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) == 1
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{audioPath}, handled)
}

func TestWatcherRejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), func(context.Context, string) error { return nil }, 1)
	assert.Error(t, err)
}
