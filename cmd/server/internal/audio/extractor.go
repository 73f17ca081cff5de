package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/houzhh15/vidscribe/pkg/metrics"
)

const ffmpegCommand = "ffmpeg"

var (
	// ErrInvalidMedia means the upload could not be decoded as a media container
	// with an audio stream. Callers should treat it as a client input error.
	ErrInvalidMedia = errors.New("invalid or unsupported media")

	// ErrExtractorUnavailable means ffmpeg could not be started or failed for a
	// reason unrelated to the input.
	ErrExtractorUnavailable = errors.New("audio extractor unavailable")

	// ErrExtractorTimeout means the conversion exceeded its timeout.
	ErrExtractorTimeout = errors.New("audio extraction timed out")
)

// ffmpeg diagnostics that point at the input file rather than the tool.
var invalidInputMarkers = []string{
	"invalid data found when processing input",
	"does not contain any stream",
	"moov atom not found",
	"could not find codec parameters",
	"output file is empty",
	"matches no streams",
}

// Options configures the waveform produced by the extractor.
type Options struct {
	SampleRate int
	Channels   int
	Timeout    time.Duration
}

// Extractor converts uploaded containers to 16-bit little-endian PCM WAV.
type Extractor struct {
	executor CommandExecutor
	opts     Options
	logger   *slog.Logger
}

// NewExtractor creates an Extractor. Zero options fall back to 8 kHz mono.
func NewExtractor(executor CommandExecutor, opts Options, logger *slog.Logger) *Extractor {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 8000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{executor: executor, opts: opts, logger: logger.With("component", "audio-extractor")}
}

// BuildArgs returns the ffmpeg arguments that transcode inputPath into a
// single-channel signed 16-bit PCM waveform at outputPath, overwriting it.
func BuildArgs(inputPath, outputPath string, sampleRate, channels int) []string {
	return []string{
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		outputPath,
		"-y",
	}
}

// Extract runs ffmpeg and checks both its exit status and its output file.
//
// Example:
//
//	err := extractor.Extract(ctx, "/tmp/vid-1234.mp4", "/tmp/vid-1234.wav")
func (e *Extractor) Extract(ctx context.Context, inputPath, outputPath string) error {
	req := CommandRequest{
		Command: ffmpegCommand,
		Args:    BuildArgs(inputPath, outputPath, e.opts.SampleRate, e.opts.Channels),
		Timeout: e.opts.Timeout,
	}

	resp, err := e.executor.ExecuteCommand(ctx, req)
	metrics.RecordCommandDuration(ffmpegCommand, resp.Duration.Seconds())

	if err := e.classify(ctx, resp, err); err != nil {
		e.logger.Warn("audio extraction failed",
			"input", inputPath,
			"exit_code", resp.ExitCode,
			"duration_ms", resp.Duration.Milliseconds(),
			"error", err,
		)
		return err
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		metrics.RecordCommandExecution(ffmpegCommand, "invalid_input")
		return fmt.Errorf("%w: ffmpeg produced no audio output", ErrInvalidMedia)
	}

	metrics.RecordCommandExecution(ffmpegCommand, "success")
	e.logger.Debug("audio extracted", "output", outputPath, "bytes", info.Size(), "duration_ms", resp.Duration.Milliseconds())
	return nil
}

func (e *Extractor) classify(ctx context.Context, resp CommandResponse, err error) error {
	switch {
	case err == nil && resp.ExitCode == 0:
		return nil
	case errors.Is(err, ErrCommandNotFound):
		metrics.RecordCommandExecution(ffmpegCommand, "failed")
		return fmt.Errorf("%w: %v", ErrExtractorUnavailable, err)
	case errors.Is(err, ErrCommandTimeout):
		metrics.RecordCommandExecution(ffmpegCommand, "timeout")
		return fmt.Errorf("%w: %v", ErrExtractorTimeout, err)
	case ctx.Err() != nil:
		metrics.RecordCommandExecution(ffmpegCommand, "canceled")
		return fmt.Errorf("audio extraction interrupted: %w", ctx.Err())
	}

	diag := stderrTail(resp.Stderr, 5)
	if isInvalidInput(resp.Stderr) {
		metrics.RecordCommandExecution(ffmpegCommand, "invalid_input")
		return fmt.Errorf("%w (exit code %d): %s", ErrInvalidMedia, resp.ExitCode, diag)
	}
	metrics.RecordCommandExecution(ffmpegCommand, "failed")
	return fmt.Errorf("%w (exit code %d): %s", ErrExtractorUnavailable, resp.ExitCode, diag)
}

// HealthCheck verifies that ffmpeg can be resolved.
func (e *Extractor) HealthCheck(ctx context.Context) error {
	return e.executor.HealthCheck(ctx)
}

func isInvalidInput(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range invalidInputMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// stderrTail keeps the last n non-empty lines; ffmpeg prints its banner first.
func stderrTail(stderr string, n int) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append([]string{line}, kept...)
		}
	}
	return strings.Join(kept, " | ")
}
