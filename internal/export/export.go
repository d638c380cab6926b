// Package export writes finished runs to files consumers can take away:
// plain-text transcript and summary, a DOCX consultation report and a JSON
// snapshot of the whole run.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/synevola/synevola/internal/pipeline"
	"github.com/synevola/synevola/internal/transcript"
)

// Exporter writes run artifacts into a single export directory
type Exporter struct {
	dir    string
	render transcript.RenderOptions
	logger *logrus.Entry
}

// NewExporter creates an exporter rooted at dir
func NewExporter(dir string, render transcript.RenderOptions) *Exporter {
	return &Exporter{
		dir:    dir,
		render: render,
		logger: logrus.WithField("component", "export"),
	}
}

// Dir returns the export directory
func (e *Exporter) Dir() string {
	return e.dir
}

// TranscriptTXT writes the rendered transcript and returns the file path
func (e *Exporter) TranscriptTXT(run *pipeline.Run) (string, error) {
	if len(run.Transcript) == 0 {
		return "", fmt.Errorf("run %s has no transcript", run.ID)
	}
	text := transcript.Render(run.Transcript, e.render)
	return e.write(run, "transcription", "txt", []byte(text))
}

// SummaryTXT writes the final summary and returns the file path
func (e *Exporter) SummaryTXT(run *pipeline.Run) (string, error) {
	if run.Summary == nil || run.Summary.FinalSummary == "" {
		return "", fmt.Errorf("run %s has no summary", run.ID)
	}
	return e.write(run, "resume", "txt", []byte(run.Summary.FinalSummary))
}

// ReportDOCX writes a consultation report holding the summary followed by
// the full transcript
func (e *Exporter) ReportDOCX(run *pipeline.Run) (string, error) {
	if len(run.Transcript) == 0 && run.Summary == nil {
		return "", fmt.Errorf("run %s has nothing to report", run.ID)
	}

	if err := os.MkdirAll(e.dir, 0750); err != nil { // #nosec G301
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	path := filepath.Join(e.dir, e.filename(run, "compte_rendu", "docx"))

	if err := writeReportDocx(path, run, e.render); err != nil {
		return "", err
	}
	e.logger.WithFields(logrus.Fields{"run": run.ID, "path": path}).Info("Report exported")
	return path, nil
}

func (e *Exporter) write(run *pipeline.Run, kind, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(e.dir, 0750); err != nil { // #nosec G301
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	path := filepath.Join(e.dir, e.filename(run, kind, ext))
	// #nosec G306 - Export files need to be readable by the user
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("error writing %s: %w", kind, err)
	}

	e.logger.WithFields(logrus.Fields{"run": run.ID, "path": path}).Info("Export written")
	return path, nil
}

func (e *Exporter) filename(run *pipeline.Run, kind, ext string) string {
	base := strings.TrimSuffix(filepath.Base(run.AudioPath), filepath.Ext(run.AudioPath))
	if base == "" || base == "." {
		base = run.ID
	}
	return fmt.Sprintf("%s_%s_%s.%s", kind, base, run.StartTime.Format("20060102_150405"), ext)
}
