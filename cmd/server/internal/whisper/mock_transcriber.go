package whisper

import (
	"context"
	"log/slog"
)

// MockTranscriber is a no-op backend for development environments without a
// speech model. It always returns an empty result with the "unknown" language.
type MockTranscriber struct {
	logger *slog.Logger
}

// NewMockTranscriber creates a new MockTranscriber instance.
func NewMockTranscriber(logger *slog.Logger) *MockTranscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockTranscriber{logger: logger}
}

// Transcribe returns an empty TranscriptionResult and never fails.
func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	m.logger.Warn("mock transcriber returns empty result", "audio", audioPath)

	return &TranscriptionResult{
		Segments: []TranscriptionSegment{},
		Text:     "",
		Language: UnknownLanguage,
		Duration: 0,
	}, nil
}

// HealthCheck always returns false so readiness reports the mock as degraded.
func (m *MockTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return false, nil
}

// Name returns the identifier of this transcriber implementation.
func (m *MockTranscriber) Name() string {
	return "mock"
}
