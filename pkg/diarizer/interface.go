package diarizer

import "context"

// Turn is a timestamped interval attributed to one speaker. Turns are
// ordered by start time; turns for the same speaker never overlap, but
// turns for different speakers may overlap slightly at boundaries.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Diarizer is the interface for speaker-diarization backends
type Diarizer interface {
	// Diarize partitions the audio timeline into speaker turns.
	// The credential token authenticates against the model provider
	// (gated diarization models require one).
	Diarize(ctx context.Context, audioPath, credentialToken string) ([]Turn, error)

	// Health reports whether the backing service is reachable and ready
	Health(ctx context.Context) (bool, error)

	// Name identifies the implementation for logging
	Name() string
}
