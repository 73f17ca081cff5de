package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// LocalTranscriber implements Transcriber by invoking a local whisper program
// (e.g., a whisper.cpp build) that prints JSON to stdout.
type LocalTranscriber struct {
	programPath string
	logger      *slog.Logger
}

// NewLocalTranscriber validates that programPath exists and is executable.
func NewLocalTranscriber(programPath string, logger *slog.Logger) (*LocalTranscriber, error) {
	info, err := os.Stat(programPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper program not found: %s", programPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat whisper program: %w", err)
	}

	// at least one execute bit: owner, group, or other
	if info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("whisper program is not executable: %s (mode: %s)", programPath, info.Mode())
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &LocalTranscriber{
		programPath: programPath,
		logger:      logger.With("component", "whisper-local"),
	}, nil
}

// BuildArgs returns the CLI arguments for one transcription.
// The program path is not part of the slice.
func (l *LocalTranscriber) BuildArgs(audioPath string, options *TranscribeOptions) []string {
	if options == nil {
		options = &TranscribeOptions{}
	}
	model := "base"
	if options.Model != "" {
		model = strings.TrimSuffix(options.Model, ".bin")
	}

	args := []string{"transcribe", model, audioPath, "--format", "json"}
	if options.BatchSize > 0 {
		args = append(args, "--batch-size", strconv.Itoa(options.BatchSize))
	}
	if options.Device != "" {
		args = append(args, "--device", options.Device)
	}
	if options.Language != "" {
		args = append(args, "--language", options.Language)
	}
	return args
}

// Transcribe runs the program and parses its stdout.
func (l *LocalTranscriber) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	args := l.BuildArgs(audioPath, options)

	cmd := exec.CommandContext(ctx, l.programPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.logger.Debug("executing whisper program", "program", l.programPath, "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("CLI execution failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	result, err := ParseCLIOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	l.logger.Debug("whisper program finished", "segments", len(result.Segments), "language", result.Language)
	return result, nil
}

// cliValue matches both a full result object and a bare segment object.
type cliValue struct {
	Text     string                 `json:"text"`
	Start    float64                `json:"start"`
	End      float64                `json:"end"`
	Segments []TranscriptionSegment `json:"segments"`
	Language string                 `json:"language"`
	Duration float64                `json:"duration"`
}

// ParseCLIOutput decodes a stream of JSON values (pretty-printed, not strict
// JSONL). Each value is either a whole result with "segments" or one segment.
// Empty output yields an empty result.
func ParseCLIOutput(output []byte) (*TranscriptionResult, error) {
	result := &TranscriptionResult{Segments: []TranscriptionSegment{}}

	decoder := json.NewDecoder(bytes.NewReader(output))
	for {
		var v cliValue
		if err := decoder.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse JSON output: %w", err)
		}

		if v.Segments != nil || v.Language != "" {
			result.Segments = append(result.Segments, v.Segments...)
			if v.Language != "" {
				result.Language = v.Language
			}
			if v.Text != "" {
				result.Text = v.Text
			}
			result.Duration = v.Duration
			continue
		}
		result.Segments = append(result.Segments, TranscriptionSegment{Text: v.Text, Start: v.Start, End: v.End})
	}

	return result, nil
}

// HealthCheck runs "<program> version" and expects some output.
func (l *LocalTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, l.programPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("version check failed: %w, output: %s", err, string(output))
	}

	if len(output) > 0 {
		return true, nil
	}

	return false, fmt.Errorf("unexpected empty version output")
}

// Name returns the identifier of this transcriber implementation.
func (l *LocalTranscriber) Name() string {
	return "whisper-local"
}
