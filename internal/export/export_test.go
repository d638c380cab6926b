package export

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synevola/synevola/internal/pipeline"
	"github.com/synevola/synevola/internal/summarize"
	"github.com/synevola/synevola/internal/transcript"
)

func testRun() *pipeline.Run {
	return &pipeline.Run{
		ID:        "run-1",
		AudioPath: "/tmp/consultation.wav",
		Stage:     pipeline.StageDone,
		StartTime: time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
		Transcript: []transcript.Segment{
			{Start: 0, End: 2.5, Text: "Bonjour, comment allez-vous ?", Speaker: "Dr Martin"},
			{Start: 2.5, End: 5, Text: "Très bien, merci.", Speaker: "Patient"},
		},
		Summary: &summarize.Result{
			Mode:         summarize.ModeDirect,
			FinalSummary: "Consultation de contrôle sans particularité.",
		},
	}
}

func TestTranscriptTXT(t *testing.T) {
	e := NewExporter(t.TempDir(), transcript.DefaultRenderOptions())

	path, err := e.TranscriptTXT(testRun())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Dr Martin")
	assert.Contains(t, content, "Bonjour, comment allez-vous ?")
	assert.Contains(t, path, "transcription_consultation_")
	assert.True(t, strings.HasSuffix(path, ".txt"))
}

func TestTranscriptTXTEmpty(t *testing.T) {
	e := NewExporter(t.TempDir(), transcript.DefaultRenderOptions())

	run := testRun()
	run.Transcript = nil
	_, err := e.TranscriptTXT(run)
	assert.Error(t, err)
}

func TestSummaryTXT(t *testing.T) {
	e := NewExporter(t.TempDir(), transcript.DefaultRenderOptions())

	path, err := e.SummaryTXT(testRun())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Consultation de contrôle sans particularité.", string(data))
	assert.Contains(t, path, "resume_consultation_")
}

func TestSummaryTXTMissing(t *testing.T) {
	e := NewExporter(t.TempDir(), transcript.DefaultRenderOptions())

	run := testRun()
	run.Summary = nil
	_, err := e.SummaryTXT(run)
	assert.Error(t, err)
}

func TestReportDOCX(t *testing.T) {
	e := NewExporter(t.TempDir(), transcript.DefaultRenderOptions())

	path, err := e.ReportDOCX(testRun())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.True(t, strings.HasSuffix(path, ".docx"))
	assert.Contains(t, path, "compte_rendu_consultation_")
}

func TestReportDOCXNothingToReport(t *testing.T) {
	e := NewExporter(t.TempDir(), transcript.DefaultRenderOptions())

	run := testRun()
	run.Transcript = nil
	run.Summary = nil
	_, err := e.ReportDOCX(run)
	assert.Error(t, err)
}
