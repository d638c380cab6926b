// Package mcp exposes the pipeline over the Model Context Protocol so
// assistants can submit recordings, follow runs and fetch results.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/synevola/synevola/internal/export"
	"github.com/synevola/synevola/internal/pipeline"
	"github.com/synevola/synevola/internal/transcript"
)

// Server wires the pipeline controller and exporter into MCP tools
type Server struct {
	controller *pipeline.Controller
	exporter   *export.Exporter
	render     transcript.RenderOptions
	mcpServer  *mcp.Server
}

// NewServer creates the MCP server and registers all tools
func NewServer(controller *pipeline.Controller, exporter *export.Exporter, render transcript.RenderOptions) *Server {
	s := &Server{
		controller: controller,
		exporter:   exporter,
		render:     render,
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "synevola",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "process_audio",
		Description: "Start processing an audio recording through transcription, diarization and summarization. Returns the run ID immediately; poll get_run for progress.",
	}, s.handleProcessAudio)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_run",
		Description: "Get the current stage and artifacts of a pipeline run",
	}, s.handleGetRun)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_runs",
		Description: "List all pipeline runs of this process, newest first",
	}, s.handleListRuns)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_transcript",
		Description: "Get the speaker-attributed transcript of a run as plain text",
	}, s.handleGetTranscript)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "rename_speaker",
		Description: "Replace a raw speaker tag (e.g. SPEAKER_00) with a display name in a run's transcript",
	}, s.handleRenameSpeaker)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_summary",
		Description: "Get the final summary of a completed run",
	}, s.handleGetSummary)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_run",
		Description: "Export a run as txt (transcript and summary), docx (consultation report) or json (full run snapshot)",
	}, s.handleExportRun)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "cancel_run",
		Description: "Cancel an active pipeline run. Artifacts produced so far stay available.",
	}, s.handleCancelRun)

	logrus.Info("MCP server initialized with pipeline tools")
	return s
}

// Run serves MCP over stdio until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, mcp.NewStdioTransport())
}

// ProcessAudioInput is the input for the process_audio tool
type ProcessAudioInput struct {
	Path string `json:"path" jsonschema:"path to the audio file to process"`
}

// RunInput identifies a pipeline run
type RunInput struct {
	RunID string `json:"runId" jsonschema:"pipeline run ID"`
}

// RenameSpeakerInput is the input for the rename_speaker tool
type RenameSpeakerInput struct {
	RunID       string `json:"runId" jsonschema:"pipeline run ID"`
	Tag         string `json:"tag" jsonschema:"raw speaker tag to replace, e.g. SPEAKER_00"`
	DisplayName string `json:"displayName" jsonschema:"name to show instead of the tag"`
}

// ExportRunInput is the input for the export_run tool
type ExportRunInput struct {
	RunID  string `json:"runId" jsonschema:"pipeline run ID"`
	Format string `json:"format" jsonschema:"export format: txt, docx or json"`
}

func (s *Server) handleProcessAudio(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ProcessAudioInput]) (*mcp.CallToolResultFor[any], error) {
	if params.Arguments.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// The run outlives the tool call; detach it from the request context
	runID := s.controller.Start(context.WithoutCancel(ctx), params.Arguments.Path)
	return textResult(fmt.Sprintf("Run started: %s", runID)), nil
}

func (s *Server) handleGetRun(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RunInput]) (*mcp.CallToolResultFor[any], error) {
	run, err := s.controller.Store().Get(params.Arguments.RunID)
	if err != nil {
		return nil, fmt.Errorf("run not found: %w", err)
	}
	return jsonResult(run)
}

func (s *Server) handleListRuns(_ context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[struct{}]) (*mcp.CallToolResultFor[any], error) {
	type runSummary struct {
		ID        string         `json:"id"`
		AudioPath string         `json:"audioPath"`
		Stage     pipeline.Stage `json:"stage"`
		Error     string         `json:"error,omitempty"`
	}

	runs := s.controller.Store().List()
	summaries := make([]runSummary, len(runs))
	for i, run := range runs {
		summaries[i] = runSummary{
			ID:        run.ID,
			AudioPath: run.AudioPath,
			Stage:     run.Stage,
			Error:     run.Error,
		}
	}
	return jsonResult(summaries)
}

func (s *Server) handleGetTranscript(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RunInput]) (*mcp.CallToolResultFor[any], error) {
	run, err := s.controller.Store().Get(params.Arguments.RunID)
	if err != nil {
		return nil, fmt.Errorf("run not found: %w", err)
	}
	if len(run.Transcript) == 0 {
		return nil, fmt.Errorf("run %s has no transcript yet (stage: %s)", run.ID, run.Stage)
	}
	return textResult(transcript.Render(run.Transcript, s.render)), nil
}

func (s *Server) handleRenameSpeaker(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RenameSpeakerInput]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.DisplayName == "" {
		return nil, fmt.Errorf("displayName is required")
	}
	if err := s.controller.RenameSpeaker(args.RunID, args.Tag, args.DisplayName); err != nil {
		return nil, fmt.Errorf("failed to rename speaker: %w", err)
	}
	return textResult(fmt.Sprintf("Speaker %s renamed to %s", args.Tag, args.DisplayName)), nil
}

func (s *Server) handleGetSummary(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RunInput]) (*mcp.CallToolResultFor[any], error) {
	run, err := s.controller.Store().Get(params.Arguments.RunID)
	if err != nil {
		return nil, fmt.Errorf("run not found: %w", err)
	}
	if run.Summary == nil || run.Summary.FinalSummary == "" {
		return nil, fmt.Errorf("run %s has no summary yet (stage: %s)", run.ID, run.Stage)
	}
	return textResult(run.Summary.FinalSummary), nil
}

func (s *Server) handleExportRun(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ExportRunInput]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	run, err := s.controller.Store().Get(args.RunID)
	if err != nil {
		return nil, fmt.Errorf("run not found: %w", err)
	}

	var paths []string
	switch args.Format {
	case "txt", "":
		if path, err := s.exporter.TranscriptTXT(run); err == nil {
			paths = append(paths, path)
		}
		if path, err := s.exporter.SummaryTXT(run); err == nil {
			paths = append(paths, path)
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("run %s has nothing to export", run.ID)
		}
	case "docx":
		path, err := s.exporter.ReportDOCX(run)
		if err != nil {
			return nil, fmt.Errorf("failed to export report: %w", err)
		}
		paths = append(paths, path)
	case "json":
		path, err := s.controller.Store().ExportJSON(run.ID, s.exporter.Dir())
		if err != nil {
			return nil, fmt.Errorf("failed to export run: %w", err)
		}
		paths = append(paths, path)
	default:
		return nil, fmt.Errorf("unsupported format %q, expected txt, docx or json", args.Format)
	}

	return jsonResult(map[string]interface{}{"exported": paths})
}

func (s *Server) handleCancelRun(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RunInput]) (*mcp.CallToolResultFor[any], error) {
	if err := s.controller.Cancel(params.Arguments.RunID); err != nil {
		return nil, fmt.Errorf("failed to cancel run: %w", err)
	}
	return textResult(fmt.Sprintf("Run %s cancelled", params.Arguments.RunID)), nil
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
