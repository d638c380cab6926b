package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/synevola/synevola/internal/audio"
	"github.com/synevola/synevola/internal/config"
	"github.com/synevola/synevola/internal/export"
	"github.com/synevola/synevola/internal/feedback"
	"github.com/synevola/synevola/internal/mcp"
	"github.com/synevola/synevola/internal/pipeline"
	"github.com/synevola/synevola/internal/summarize"
	"github.com/synevola/synevola/internal/transcript"
	"github.com/synevola/synevola/internal/watcher"
	"github.com/synevola/synevola/pkg/diarizer"
	"github.com/synevola/synevola/pkg/llm"
	"github.com/synevola/synevola/pkg/recognizer"
)

var (
	configPath     string
	recognizerType string
	diarizerType   string
	backendType    string
	serveMCP       bool
	metricsAddr    string
	audioFile      string
)

func init() {
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
	flag.StringVar(&recognizerType, "recognizer", "whisper", "Recognizer type: whisper or mock")
	flag.StringVar(&diarizerType, "diarizer", "pyannote", "Diarizer type: pyannote or mock")
	flag.StringVar(&backendType, "backend", "lmstudio", "Summarization backend: lmstudio or mock")
	flag.BoolVar(&serveMCP, "mcp", false, "Serve MCP tools over stdio")
	flag.StringVar(&metricsAddr, "metrics", "", "Address for the Prometheus metrics endpoint, e.g. :9100 (disabled when empty)")
	flag.StringVar(&audioFile, "file", "", "Process a single audio file and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("Error loading .env file, using environment variables")
	}
}

func main() {
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer cancel()

	rec := buildRecognizer(cfg)
	dia := buildDiarizer(cfg)
	backend := buildBackend(cfg)

	bus := feedback.NewBus()
	summarizer, err := summarize.NewOrchestrator(backend, summarize.Config{
		Mode:              summarize.Mode(cfg.Summary.Mode),
		MaxTokens:         cfg.Summary.MaxTokens,
		OverlapTokens:     *cfg.Summary.OverlapTokens,
		Temperature:       cfg.Summary.Temperature,
		MaxResponseTokens: cfg.Summary.MaxResponseTokens,
		MaxRetries:        cfg.Summary.MaxRetries,
		RetryDelay:        time.Duration(cfg.Summary.RetryDelay),
		Concurrency:       cfg.Summary.Concurrency,
	}, bus)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid summarization configuration")
	}

	render := transcript.DefaultRenderOptions()
	controller := pipeline.NewController(
		pipeline.NewStore(), rec, dia, summarizer,
		transcript.NewRegistry(),
		pipeline.Config{
			RecognizerOptions: recognizer.Options{
				ModelSize: cfg.Recognizer.ModelSize,
				Language:  cfg.Recognizer.Language,
			},
			DiarizerToken:            cfg.Diarizer.Token,
			AllowDegradedDiarization: cfg.Pipeline.AllowDegradedDiarization,
			Render:                   render,
		}, bus)

	exporter := export.NewExporter(cfg.Paths.Exports, render)

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	switch {
	case audioFile != "":
		runOnce(ctx, cfg, controller, exporter, audioFile)
	case serveMCP:
		server := mcp.NewServer(controller, exporter, render)
		logrus.Info("Serving MCP over stdio")
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Fatal("MCP server error")
		}
	case cfg.Paths.Watch != "":
		runWatcher(ctx, cfg, controller, exporter)
	default:
		logrus.Fatal("Nothing to do: pass -file, -mcp or configure paths.watch")
	}

	logrus.Info("Shutting down")
}

func buildRecognizer(cfg *config.Config) recognizer.Recognizer {
	switch strings.ToLower(recognizerType) {
	case "mock":
		logrus.Info("Using mock recognizer")
		return &recognizer.MockRecognizer{}
	default:
		logrus.WithField("endpoint", cfg.Recognizer.BaseURL).Info("Using Whisper recognizer")
		return recognizer.NewWhisperClient(cfg.Recognizer.BaseURL)
	}
}

func buildDiarizer(cfg *config.Config) diarizer.Diarizer {
	switch strings.ToLower(diarizerType) {
	case "mock":
		logrus.Info("Using mock diarizer")
		return &diarizer.MockDiarizer{}
	default:
		logrus.WithField("endpoint", cfg.Diarizer.BaseURL).Info("Using pyannote diarizer")
		return diarizer.NewPyannoteClient(cfg.Diarizer.BaseURL)
	}
}

func buildBackend(cfg *config.Config) llm.Backend {
	switch strings.ToLower(backendType) {
	case "mock":
		logrus.Info("Using mock summarization backend")
		return &llm.MockBackend{}
	default:
		logrus.WithFields(logrus.Fields{
			"endpoint": cfg.LMStudio.BaseURL,
			"model":    cfg.LMStudio.Model,
		}).Info("Using LM Studio backend")
		return llm.NewLMStudioClient(cfg.LMStudio.BaseURL, cfg.LMStudio.APIKey, cfg.LMStudio.Model, llm.APIMode(cfg.LMStudio.Mode))
	}
}

// process normalizes the recording when configured, starts a run and waits
// for it to reach a terminal stage, then writes the exports
func process(ctx context.Context, cfg *config.Config, controller *pipeline.Controller, exporter *export.Exporter, path string) error {
	if cfg.Pipeline.NormalizeAudio {
		if err := os.MkdirAll(cfg.Paths.Work, 0750); err != nil { // #nosec G301
			return err
		}
		normalized := filepath.Join(cfg.Paths.Work, "normalized_"+filepath.Base(path))
		if err := audio.Normalize(path, normalized); err != nil {
			logrus.WithError(err).WithField("file", path).Warn("Audio normalization failed, using original")
		} else {
			path = normalized
		}
	}

	runID := controller.Start(ctx, path)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = controller.Cancel(runID)
			return ctx.Err()
		case <-ticker.C:
		}

		run, err := controller.Store().Get(runID)
		if err != nil {
			return err
		}
		if !run.Stage.Terminal() {
			continue
		}

		if run.Stage != pipeline.StageDone {
			logrus.WithFields(logrus.Fields{
				"run":   runID,
				"stage": run.Stage,
				"error": run.Error,
			}).Error("Run did not complete")
			return nil
		}

		if _, err := exporter.TranscriptTXT(run); err != nil {
			logrus.WithError(err).Warn("Transcript export failed")
		}
		if _, err := exporter.SummaryTXT(run); err != nil {
			logrus.WithError(err).Warn("Summary export failed")
		}
		if _, err := exporter.ReportDOCX(run); err != nil {
			logrus.WithError(err).Warn("Report export failed")
		}
		return nil
	}
}

func runOnce(ctx context.Context, cfg *config.Config, controller *pipeline.Controller, exporter *export.Exporter, path string) {
	if err := process(ctx, cfg, controller, exporter, path); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Fatal("Processing failed")
	}
}

func runWatcher(ctx context.Context, cfg *config.Config, controller *pipeline.Controller, exporter *export.Exporter) {
	w, err := watcher.New(cfg.Paths.Watch, func(ctx context.Context, path string) error {
		return process(ctx, cfg, controller, exporter, path)
	}, cfg.Summary.Concurrency)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create watcher")
	}
	defer w.Stop()

	logrus.WithField("dir", cfg.Paths.Watch).Info("Pipeline is ready, press CTRL-C to exit")
	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("Watcher error")
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logrus.WithField("addr", addr).Info("Serving Prometheus metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Error("Metrics server error")
	}
}
