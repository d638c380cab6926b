package transcript

import (
	"errors"
	"sync"
)

// ErrEmptyTag is returned when a mapping is registered for an empty raw tag
var ErrEmptyTag = errors.New("transcript: empty speaker tag")

// Registry maps raw diarizer speaker tags (SPEAKER_00, SPEAKER_01, ...) to
// human-readable display names chosen by the operator. Unknown tags pass
// through unchanged.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewRegistry creates an empty speaker registry
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]string)}
}

// SetMapping registers or replaces the display name for a raw tag. Raw tags
// that no transcript has produced yet are accepted; they simply apply once
// the speaker appears.
func (r *Registry) SetMapping(rawTag, displayName string) error {
	if rawTag == "" {
		return ErrEmptyTag
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[rawTag] = displayName
	return nil
}

// DisplayName resolves a raw tag, falling back to the tag itself
func (r *Registry) DisplayName(rawTag string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.names[rawTag]; ok {
		return name
	}
	return rawTag
}

// Mappings returns a copy of the current tag → name table
func (r *Registry) Mappings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.names))
	for k, v := range r.names {
		out[k] = v
	}
	return out
}

// Rename returns a copy of segments with speaker tags resolved to their
// display names. The first pass records each segment's tag in RawSpeaker;
// every pass resolves from RawSpeaker, so applying Rename twice with the
// same table equals applying it once, and editing a mapping later replaces
// the previous display name instead of leaving it behind.
func (r *Registry) Rename(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	for i := range out {
		raw := out[i].RawSpeaker
		if raw == "" {
			raw = out[i].Speaker
		}
		if raw == "" {
			continue
		}
		out[i].RawSpeaker = raw
		out[i].Speaker = r.DisplayName(raw)
	}
	return out
}
