package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// HTTPTranscriber implements Transcriber against a whisper inference server
// that accepts multipart/form-data uploads and answers with JSON segments.
type HTTPTranscriber struct {
	apiURL     string       // Base URL of the whisper service (e.g., "http://whisper:8082")
	httpClient *http.Client // Reusable HTTP client; per-call deadlines come from ctx
	logger     *slog.Logger
}

// NewHTTPTranscriber creates a new HTTPTranscriber for the given base URL.
// The client has no global timeout; the Engine bounds every call through ctx.
func NewHTTPTranscriber(apiURL string, logger *slog.Logger) *HTTPTranscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTranscriber{
		apiURL:     apiURL,
		httpClient: &http.Client{},
		logger:     logger.With("component", "whisper-http"),
	}
}

// Transcribe uploads the waveform to POST {apiURL}/api/whisper/transcribe.
//
// Fields sent: audio (file), model, response_format=json,
// batch_size and device when set, language only when a hint is given.
func (g *HTTPTranscriber) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	if options == nil {
		options = &TranscribeOptions{}
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}

	model := "whisper-ct2"
	if options.Model != "" {
		model = options.Model
	}
	fields := map[string]string{
		"model":           model,
		"response_format": "json",
	}
	if options.BatchSize > 0 {
		fields["batch_size"] = strconv.Itoa(options.BatchSize)
	}
	if options.Device != "" {
		fields["device"] = options.Device
	}
	if options.Language != "" {
		fields["language"] = options.Language
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/whisper/transcribe", g.apiURL)
	g.logger.Debug("sending transcription request", "endpoint", endpoint, "audio", audioPath, "model", model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		g.logger.Warn("whisper service returned error", "status", resp.StatusCode, "body", string(bodyBytes))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result TranscriptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if result.Segments == nil {
		result.Segments = []TranscriptionSegment{}
	}

	return &result, nil
}

// HealthCheck sends GET {apiURL}/api/whisper/model and expects 200 OK.
func (g *HTTPTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/whisper/model", g.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}

	return false, fmt.Errorf("health check failed: status %d", resp.StatusCode)
}

// Name returns the identifier of this transcriber implementation.
func (g *HTTPTranscriber) Name() string {
	return "whisper-http"
}
