// Package whisper provides the speech transcription engine: a Transcriber
// abstraction with HTTP, CLI and mock backends, and an Engine service that is
// loaded once at startup and shared by all requests.
package whisper

import (
	"context"
	"time"
)

// UnknownLanguage is the sentinel reported when no language was detected.
const UnknownLanguage = "unknown"

// TranscriptionSegment represents a single segment of transcribed audio with timing information.
type TranscriptionSegment struct {
	// Text is the transcribed text content of this segment
	Text string `json:"text"`

	// Start is the beginning time of this segment in seconds from the audio start
	Start float64 `json:"start"`

	// End is the ending time of this segment in seconds from the audio start
	End float64 `json:"end"`
}

// TranscriptionResult represents the complete result of an audio transcription operation.
type TranscriptionResult struct {
	// Segments is the chronologically ordered list of transcribed segments
	Segments []TranscriptionSegment `json:"segments"`

	// Text is the complete transcribed text, when the backend reports one
	Text string `json:"text"`

	// Language is the detected language code (e.g., "en"), or "unknown"/empty
	Language string `json:"language"`

	// Duration is the total duration of the audio in seconds
	Duration float64 `json:"duration"`
}

// Transcriber defines the standard interface for audio transcription backends.
type Transcriber interface {
	// Transcribe performs audio transcription on the given WAV file.
	//
	// Implementation notes:
	//   - Must respect context timeout and cancellation
	//   - Empty speech returns a valid result with an empty Segments slice, not an error
	Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error)

	// HealthCheck verifies that the transcription backend is operational.
	HealthCheck(ctx context.Context) (bool, error)

	// Name returns the human-readable identifier of this backend (e.g., "whisper-http").
	Name() string
}

// TranscribeOptions defines optional parameters for the Transcribe operation.
// All fields are optional; implementations provide sensible defaults.
type TranscribeOptions struct {
	// Model specifies the model to use (e.g., "whisper-ct2", "base", "large-v3").
	Model string

	// Language forces transcription in a specific language (ISO 639-1 code).
	// Empty string means auto-detection.
	Language string

	// BatchSize is the inference batch size forwarded to the backend.
	BatchSize int

	// Device selects the compute device ("cuda" or "cpu").
	Device string

	// Timeout overrides the default transcription timeout.
	Timeout time.Duration
}
