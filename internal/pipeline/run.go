// Package pipeline sequences one audio file through recognition,
// diarization, alignment, renaming and summarization, tracking each run
// as a small state machine.
package pipeline

import (
	"time"

	"github.com/synevola/synevola/internal/summarize"
	"github.com/synevola/synevola/internal/transcript"
	"github.com/synevola/synevola/pkg/diarizer"
	"github.com/synevola/synevola/pkg/recognizer"
)

// Stage is the position of a run in the processing sequence
type Stage string

const (
	StageIdle        Stage = "idle"
	StageRecognizing Stage = "recognizing"
	StageDiarizing   Stage = "diarizing"
	StageAligning    Stage = "aligning"
	StageSummarizing Stage = "summarizing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
	StageCancelled   Stage = "cancelled"
)

// Terminal reports whether a run in this stage will make no further
// transitions
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed || s == StageCancelled
}

// Run holds everything produced while processing one audio file. Stage
// fields are written only by the controller; artifact slots are each
// written exactly once by the stage that produces them.
type Run struct {
	ID        string     `json:"id"`
	AudioPath string     `json:"audioPath"`
	Stage     Stage      `json:"stage"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	// FailedStage and Error are set only when Stage is failed
	FailedStage Stage  `json:"failedStage,omitempty"`
	Error       string `json:"error,omitempty"`

	// DegradedDiarization is true when diarization failed but the run was
	// allowed to continue with unknown speakers
	DegradedDiarization bool `json:"degradedDiarization,omitempty"`

	Language   string               `json:"language,omitempty"`
	Segments   []recognizer.Segment `json:"segments,omitempty"`
	Turns      []diarizer.Turn      `json:"turns,omitempty"`
	Transcript []transcript.Segment `json:"transcript,omitempty"`
	Summary    *summarize.Result    `json:"summary,omitempty"`
}
