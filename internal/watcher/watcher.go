// Package watcher monitors a drop folder for new recordings and hands each
// one to the pipeline, with a bound on concurrent runs.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Handler processes one detected audio file
type Handler func(ctx context.Context, path string) error

// Watcher watches a directory for incoming audio files
type Watcher struct {
	dir       string
	handler   Handler
	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup
	logger    *logrus.Entry

	// settleDelay gives the producer time to finish writing the file
	// before the pipeline opens it
	settleDelay time.Duration
}

var audioExtensions = []string{".wav", ".mp3", ".ogg", ".flac", ".m4a", ".webm"}

// New creates a watcher over dir with at most maxConcurrent runs in flight
func New(dir string, handler Handler, maxConcurrent int) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Watcher{
		dir:         dir,
		handler:     handler,
		watcher:     fsw,
		semaphore:   make(chan struct{}, maxConcurrent),
		logger:      logrus.WithField("component", "watcher"),
		settleDelay: 500 * time.Millisecond,
	}, nil
}

// Start monitors the directory until ctx is cancelled, then waits for
// in-flight runs to finish
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.WithFields(logrus.Fields{
		"dir":        w.dir,
		"extensions": strings.Join(audioExtensions, ", "),
	}).Info("Watching for recordings")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Waiting for in-flight runs to complete")
			w.wg.Wait()
			w.logger.Info("Watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isAudioFile(event.Name) {
				w.logger.WithField("file", event.Name).Debug("Ignoring non-audio file")
				continue
			}

			w.logger.WithField("file", event.Name).Info("New recording detected")
			time.Sleep(w.settleDelay)

			select {
			case w.semaphore <- struct{}{}:
				w.wg.Add(1)
				go func(path string) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }()

					if err := w.handler(ctx, path); err != nil {
						w.logger.WithError(err).WithField("file", path).Error("Failed to process recording")
					}
				}(event.Name)
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.WithError(err).Error("Watcher error")
		}
	}
}

// Stop closes the underlying filesystem watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range audioExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
