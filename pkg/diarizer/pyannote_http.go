package diarizer

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

// PyannoteClient talks to a local pyannote diarization HTTP service.
// The service accepts a multipart upload on /diarize and returns ordered
// speaker turns. A credential token is forwarded so the service can pull
// gated model weights.
type PyannoteClient struct {
	baseURL string
	client  *http.Client
}

type pyannoteResponse struct {
	Segments    []Turn `json:"segments"`
	NumSpeakers int    `json:"num_speakers"`
}

// NewPyannoteClient creates a diarizer backed by a local pyannote service
func NewPyannoteClient(baseURL string) *PyannoteClient {
	return &PyannoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Minute},
	}
}

// Diarize uploads the audio file and decodes the speaker turns
func (p *PyannoteClient) Diarize(ctx context.Context, audioPath, credentialToken string) ([]Turn, error) {
	if strings.TrimSpace(credentialToken) == "" {
		return nil, &AuthenticationError{Detail: "credential token is required for diarization"}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/diarize", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+credentialToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarizer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		msg := strings.TrimSpace(string(detail))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &AuthenticationError{Detail: msg}
		case http.StatusServiceUnavailable:
			return nil, &ModelUnavailableError{Detail: msg}
		}
		return nil, fmt.Errorf("diarizer %s: %s", resp.Status, msg)
	}

	var out pyannoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("diarizer decode: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"turns":    len(out.Segments),
		"speakers": out.NumSpeakers,
	}).Debug("Diarization complete")

	return out.Segments, nil
}

// Health probes the service health endpoint
func (p *PyannoteClient) Health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (p *PyannoteClient) Name() string {
	return "pyannote-http"
}
