package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/synevola/synevola/internal/feedback"
	"github.com/synevola/synevola/internal/metrics"
	"github.com/synevola/synevola/internal/summarize"
	"github.com/synevola/synevola/internal/transcript"
	"github.com/synevola/synevola/pkg/diarizer"
	"github.com/synevola/synevola/pkg/recognizer"
)

// Config holds the per-controller processing settings
type Config struct {
	RecognizerOptions recognizer.Options
	DiarizerToken     string

	// AllowDegradedDiarization lets a run continue with unknown speakers
	// when the diarizer rejects the credential or cannot load its model.
	// The caller opts in; the controller never degrades silently.
	AllowDegradedDiarization bool

	Render transcript.RenderOptions
}

// Controller owns the run sequence. Recognition and diarization run
// concurrently over the same audio; alignment waits for both. All other
// stages are sequential.
type Controller struct {
	store      *Store
	recognizer recognizer.Recognizer
	diarizer   diarizer.Diarizer
	summarizer *summarize.Orchestrator
	registry   *transcript.Registry
	bus        *feedback.Bus
	cfg        Config
	logger     *logrus.Entry

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// stageError tags a failure with the stage that produced it
type stageError struct {
	stage Stage
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

// NewController creates a controller over the given backends. registry and
// bus may be shared with other components; bus may be nil.
func NewController(store *Store, rec recognizer.Recognizer, dia diarizer.Diarizer, summ *summarize.Orchestrator, registry *transcript.Registry, cfg Config, bus *feedback.Bus) *Controller {
	if registry == nil {
		registry = transcript.NewRegistry()
	}
	return &Controller{
		store:      store,
		recognizer: rec,
		diarizer:   dia,
		summarizer: summ,
		registry:   registry,
		bus:        bus,
		cfg:        cfg,
		logger:     logrus.WithField("component", "pipeline"),
	}
}

// Store exposes the run store for read access by callers
func (c *Controller) Store() *Store {
	return c.store
}

// Registry exposes the shared speaker registry
func (c *Controller) Registry() *transcript.Registry {
	return c.registry
}

// Start begins processing an audio file in the background and returns the
// run ID immediately. The run can be observed through the store and
// cancelled with Cancel.
func (c *Controller) Start(ctx context.Context, audioPath string) string {
	run := c.store.Create(audioPath)

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancels == nil {
		c.cancels = make(map[string]context.CancelFunc)
	}
	c.cancels[run.ID] = cancel
	c.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			c.mu.Lock()
			delete(c.cancels, run.ID)
			c.mu.Unlock()
		}()
		c.execute(runCtx, run.ID, audioPath)
	}()

	return run.ID
}

// Cancel aborts a running pipeline. In-flight external calls are abandoned;
// artifacts already recorded on the run stay inspectable.
func (c *Controller) Cancel(runID string) error {
	c.mu.Lock()
	cancel, ok := c.cancels[runID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s is not active", runID)
	}
	cancel()
	return nil
}

// RenameSpeaker maps a raw diarizer tag to a display name and rewrites the
// run's transcript. Renaming twice with the same name is a no-op.
func (c *Controller) RenameSpeaker(runID, rawTag, displayName string) error {
	if err := c.registry.SetMapping(rawTag, displayName); err != nil {
		return err
	}
	return c.store.Update(runID, func(run *Run) {
		run.Transcript = c.registry.Rename(run.Transcript)
	})
}

func (c *Controller) execute(ctx context.Context, runID, audioPath string) {
	c.logger.WithFields(logrus.Fields{
		"run":   runID,
		"audio": audioPath,
	}).Info("Starting pipeline run")

	segments, turns, degraded, err := c.transcribe(ctx, runID, audioPath)
	if err != nil {
		c.fail(runID, err)
		return
	}

	aligned := c.align(runID, segments, turns, degraded)

	if err := c.summarize(ctx, runID, aligned); err != nil {
		c.fail(runID, err)
		return
	}

	c.finish(runID)
}

// transcribe runs recognition and diarization concurrently and joins on
// both. Their results land in disjoint run fields, so the join is the only
// synchronization needed.
func (c *Controller) transcribe(ctx context.Context, runID, audioPath string) ([]recognizer.Segment, []diarizer.Turn, bool, error) {
	c.setStage(runID, StageRecognizing)

	var (
		segments []recognizer.Segment
		language string
		turns    []diarizer.Turn
		degraded bool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		result, err := c.recognizer.Recognize(gctx, audioPath, c.cfg.RecognizerOptions)
		metrics.ObserveStageDuration(string(StageRecognizing), time.Since(start))
		if err != nil {
			return &stageError{stage: StageRecognizing, err: err}
		}
		segments = result.Segments
		language = result.Language
		c.setStage(runID, StageDiarizing)
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		result, err := c.diarizer.Diarize(gctx, audioPath, c.cfg.DiarizerToken)
		metrics.ObserveStageDuration(string(StageDiarizing), time.Since(start))
		if err != nil {
			if c.cfg.AllowDegradedDiarization && isDiarizerFatal(err) {
				c.logger.WithError(err).WithField("run", runID).
					Warn("Diarization unavailable, continuing without speaker labels")
				degraded = true
				return nil
			}
			return &stageError{stage: StageDiarizing, err: err}
		}
		turns = result
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, false, err
	}

	if updateErr := c.store.Update(runID, func(run *Run) {
		run.Segments = segments
		run.Language = language
		run.Turns = turns
		run.DegradedDiarization = degraded
	}); updateErr != nil {
		c.logger.WithError(updateErr).WithField("run", runID).Error("Failed to record transcription artifacts")
	}

	return segments, turns, degraded, nil
}

func (c *Controller) align(runID string, segments []recognizer.Segment, turns []diarizer.Turn, degraded bool) []transcript.Segment {
	c.setStage(runID, StageAligning)

	start := time.Now()
	aligned := transcript.Align(segments, turns)
	aligned = c.registry.Rename(aligned)
	metrics.ObserveStageDuration(string(StageAligning), time.Since(start))

	if err := c.store.Update(runID, func(run *Run) {
		run.Transcript = aligned
	}); err != nil {
		c.logger.WithError(err).WithField("run", runID).Error("Failed to record transcript")
	}

	c.logger.WithFields(logrus.Fields{
		"run":      runID,
		"segments": len(aligned),
		"degraded": degraded,
	}).Info("Transcript aligned")

	return aligned
}

func (c *Controller) summarize(ctx context.Context, runID string, aligned []transcript.Segment) error {
	c.setStage(runID, StageSummarizing)

	text := transcript.Render(aligned, c.cfg.Render)
	if strings.TrimSpace(text) == "" {
		c.logger.WithField("run", runID).Warn("Transcript is empty, skipping summarization")
		return nil
	}

	start := time.Now()
	result, err := c.summarizer.Summarize(ctx, text)
	metrics.ObserveStageDuration(string(StageSummarizing), time.Since(start))
	if err != nil {
		return &stageError{stage: StageSummarizing, err: err}
	}

	if err := c.store.Update(runID, func(run *Run) {
		run.Summary = result
	}); err != nil {
		c.logger.WithError(err).WithField("run", runID).Error("Failed to record summary")
	}
	return nil
}

func (c *Controller) setStage(runID string, stage Stage) {
	if err := c.store.Update(runID, func(run *Run) {
		run.Stage = stage
	}); err != nil {
		c.logger.WithError(err).WithField("run", runID).Error("Failed to update stage")
		return
	}
	c.bus.Publish(feedback.Event{
		Type:  feedback.EventStageChanged,
		RunID: runID,
		Stage: string(stage),
	})
}

func (c *Controller) finish(runID string) {
	now := time.Now()
	if err := c.store.Update(runID, func(run *Run) {
		run.Stage = StageDone
		run.EndTime = &now
	}); err != nil {
		c.logger.WithError(err).WithField("run", runID).Error("Failed to finish run")
		return
	}
	metrics.RecordRun("done")
	c.bus.Publish(feedback.Event{
		Type:  feedback.EventRunCompleted,
		RunID: runID,
		Stage: string(StageDone),
	})
	c.logger.WithField("run", runID).Info("Pipeline run completed")
}

// fail records a terminal failure, distinguishing caller cancellation from
// stage errors. Artifacts recorded before the failure are kept.
func (c *Controller) fail(runID string, err error) {
	now := time.Now()

	if errors.Is(err, context.Canceled) {
		if updateErr := c.store.Update(runID, func(run *Run) {
			run.Stage = StageCancelled
			run.EndTime = &now
		}); updateErr != nil {
			c.logger.WithError(updateErr).WithField("run", runID).Error("Failed to record cancellation")
			return
		}
		metrics.RecordRun("cancelled")
		c.bus.Publish(feedback.Event{
			Type:  feedback.EventRunFailed,
			RunID: runID,
			Stage: string(StageCancelled),
		})
		c.logger.WithField("run", runID).Info("Pipeline run cancelled")
		return
	}

	failedStage := StageFailed
	var stageErr *stageError
	if errors.As(err, &stageErr) {
		failedStage = stageErr.stage
	}

	if updateErr := c.store.Update(runID, func(run *Run) {
		run.Stage = StageFailed
		run.FailedStage = failedStage
		run.Error = err.Error()
		run.EndTime = &now
	}); updateErr != nil {
		c.logger.WithError(updateErr).WithField("run", runID).Error("Failed to record failure")
		return
	}
	metrics.RecordRun("failed")
	c.bus.Publish(feedback.Event{
		Type:  feedback.EventRunFailed,
		RunID: runID,
		Stage: string(failedStage),
		Data:  err.Error(),
	})
	c.logger.WithError(err).WithFields(logrus.Fields{
		"run":   runID,
		"stage": failedStage,
	}).Error("Pipeline run failed")
}

// isDiarizerFatal reports whether the error is one of the diarizer's
// credential or model failures, the only ones degraded mode may absorb
func isDiarizerFatal(err error) bool {
	var authErr *diarizer.AuthenticationError
	var modelErr *diarizer.ModelUnavailableError
	return errors.As(err, &authErr) || errors.As(err, &modelErr)
}
