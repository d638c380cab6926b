// Package feedback distributes pipeline progress events to interested
// listeners (CLI status output, tool-server notifications).
package feedback

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType represents the type of event
type EventType string

const (
	// Run lifecycle events
	EventStageChanged EventType = "run.stage.changed"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"

	// Summarization events
	EventChunkStarted   EventType = "summary.chunk.started"
	EventChunkCompleted EventType = "summary.chunk.completed"
	EventSynthesisBegan EventType = "summary.synthesis.started"
)

// Event represents a pipeline progress event
type Event struct {
	Type      EventType
	Timestamp time.Time
	RunID     string
	Stage     string
	Data      interface{}
}

// ChunkProgressData carries per-chunk summarization progress
type ChunkProgressData struct {
	ChunkIndex  int
	ChunkCount  int
	ProcessTime time.Duration
}

// Handler is a function that handles events
type Handler func(event Event)

// Bus fans events out to registered handlers. Publishing is synchronous;
// handlers must not block.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an event bus with no handlers
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all events
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers an event to every handler. A nil bus is a no-op so
// components can treat progress reporting as optional.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	logrus.WithFields(logrus.Fields{
		"event": event.Type,
		"run":   event.RunID,
		"stage": event.Stage,
	}).Debug("Event published")

	for _, h := range handlers {
		h(event)
	}
}
