package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// WhisperClient talks to a local faster-whisper HTTP service.
// The service accepts a multipart upload on /transcribe and returns
// timestamped segments plus the detected language.
type WhisperClient struct {
	baseURL string
	client  *http.Client
}

// NewWhisperClient creates a recognizer backed by a local whisper service
func NewWhisperClient(baseURL string) *WhisperClient {
	return &WhisperClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Long recordings take a while; the caller's context bounds each call
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

// Recognize uploads the audio file and decodes the segment list and
// detected language
func (w *WhisperClient) Recognize(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if opts.ModelSize != "" {
		if err := mw.WriteField("model", opts.ModelSize); err != nil {
			return nil, fmt.Errorf("write model field: %w", err)
		}
	}
	if opts.Language != "" {
		if err := mw.WriteField("language", opts.Language); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	fd, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", audioPath, err)
	}
	defer fd.Close()
	if _, err := io.Copy(fw, fd); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognizer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		return nil, fmt.Errorf("recognizer %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("recognizer decode: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"segments": len(out.Segments),
		"language": out.Language,
		"took":     time.Since(start),
	}).Debug("Recognition complete")

	return &out, nil
}

// Health probes the service health endpoint
func (w *WhisperClient) Health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (w *WhisperClient) Name() string {
	return "whisper-http"
}
