// Package transcript assembles recognizer output and diarizer output into a
// single speaker-labeled transcript and renders it as plain text.
package transcript

import (
	"github.com/synevola/synevola/pkg/diarizer"
	"github.com/synevola/synevola/pkg/recognizer"
)

// Segment is one speaker-labeled transcript unit. It carries the timing and
// text of exactly one recognition segment; only the speaker tag is added.
// Segments are never split or merged after creation, and start times are
// non-decreasing across a transcript.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"` // empty = unknown speaker

	// RawSpeaker preserves the diarizer tag once a rename has replaced
	// Speaker with a display name, so later mapping edits can re-resolve
	// from the original tag.
	RawSpeaker string `json:"rawSpeaker,omitempty"`
}

// Type aliases keep call sites readable without re-exporting the client
// packages everywhere.
type (
	RecognitionSegment = recognizer.Segment
	DiarizationTurn    = diarizer.Turn
)
