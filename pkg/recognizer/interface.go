package recognizer

import "context"

// Segment is a single timestamped piece of recognized speech.
// Segments are ordered by start time and non-overlapping by construction
// of the recognizer.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is one complete recognition outcome
type Result struct {
	Segments []Segment `json:"segments"`
	// Language is the detected (or hinted) ISO 639-1 code, when the
	// backend reports one
	Language string `json:"language,omitempty"`
}

// Options provides optional parameters for recognition
type Options struct {
	// ModelSize selects the recognition model (e.g. "tiny", "base", "small",
	// "medium", "large"). Empty means the service default.
	ModelSize string

	// Language hint (ISO 639-1 code, e.g. "fr", "en"). Empty means auto-detect.
	Language string
}

// Recognizer is the interface for speech recognition backends.
// Implementations must respect context cancellation and surface failures
// (unsupported audio, out-of-memory) as errors without retrying.
type Recognizer interface {
	// Recognize transcribes the audio file at audioPath into ordered segments
	Recognize(ctx context.Context, audioPath string, opts Options) (*Result, error)

	// Health reports whether the backing service is reachable and ready
	Health(ctx context.Context) (bool, error)

	// Name identifies the implementation for logging
	Name() string
}
