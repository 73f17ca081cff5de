package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Doubles (Fakes)
// ============================================================================

// FakeExecutor is a test double that records commands instead of running them.
type FakeExecutor struct {
	// ResponseToReturn is the preset response returned by ExecuteCommand.
	ResponseToReturn CommandResponse

	// ErrorToReturn is the preset error returned by ExecuteCommand and HealthCheck.
	ErrorToReturn error

	// WriteOutput, when non-nil, is written to the output path (second to last arg).
	WriteOutput []byte

	// ExecutedCommands records all commands that were executed.
	ExecutedCommands []CommandRequest
}

func (f *FakeExecutor) ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	f.ExecutedCommands = append(f.ExecutedCommands, req)
	if f.WriteOutput != nil && len(req.Args) >= 2 {
		if err := os.WriteFile(req.Args[len(req.Args)-2], f.WriteOutput, 0644); err != nil {
			return CommandResponse{}, err
		}
	}
	return f.ResponseToReturn, f.ErrorToReturn
}

func (f *FakeExecutor) HealthCheck(ctx context.Context) error {
	return f.ErrorToReturn
}

func paths(t *testing.T) (string, string) {
	dir := t.TempDir()
	return filepath.Join(dir, "in.mp4"), filepath.Join(dir, "out.wav")
}

// ============================================================================
// Extractor Tests
// ============================================================================

func TestBuildArgs(t *testing.T) {
	args := BuildArgs("/tmp/in.mp4", "/tmp/out.wav", 8000, 1)

	assert.Equal(t, []string{
		"-i", "/tmp/in.mp4",
		"-acodec", "pcm_s16le",
		"-ar", "8000",
		"-ac", "1",
		"/tmp/out.wav",
		"-y",
	}, args)
}

func TestExtractor_Extract_Success(t *testing.T) {
	in, out := paths(t)
	fakeExec := &FakeExecutor{
		ResponseToReturn: CommandResponse{Success: true, Duration: 300 * time.Millisecond},
		WriteOutput:      []byte("RIFF....WAVEfmt "),
	}
	extractor := NewExtractor(fakeExec, Options{Timeout: time.Minute}, nil)

	err := extractor.Extract(context.Background(), in, out)

	require.NoError(t, err)
	require.Len(t, fakeExec.ExecutedCommands, 1)
	cmd := fakeExec.ExecutedCommands[0]
	assert.Equal(t, "ffmpeg", cmd.Command)
	assert.Equal(t, time.Minute, cmd.Timeout)
	assert.Contains(t, cmd.Args, "pcm_s16le")
	assert.Contains(t, cmd.Args, "8000")
	assert.Equal(t, out, cmd.Args[len(cmd.Args)-2])
}

func TestExtractor_Extract_Classification(t *testing.T) {
	tests := []struct {
		name    string
		resp    CommandResponse
		err     error
		wantErr error
	}{
		{
			name:    "corrupt container",
			resp:    CommandResponse{ExitCode: 1, Stderr: "ffmpeg version 6.0\n/tmp/in.mp4: Invalid data found when processing input\n"},
			err:     errors.New("exit status 1"),
			wantErr: ErrInvalidMedia,
		},
		{
			name:    "no audio stream",
			resp:    CommandResponse{ExitCode: 1, Stderr: "Output file #0 does not contain any stream\n"},
			err:     errors.New("exit status 1"),
			wantErr: ErrInvalidMedia,
		},
		{
			name:    "unrecognized failure",
			resp:    CommandResponse{ExitCode: 137, Stderr: "Killed\n"},
			err:     errors.New("signal: killed"),
			wantErr: ErrExtractorUnavailable,
		},
		{
			name:    "binary missing",
			resp:    CommandResponse{ExitCode: -1},
			err:     fmt.Errorf("%w: ffmpeg: executable file not found in $PATH", ErrCommandNotFound),
			wantErr: ErrExtractorUnavailable,
		},
		{
			name:    "timeout",
			resp:    CommandResponse{ExitCode: -1},
			err:     fmt.Errorf("%w (5m0s): ffmpeg", ErrCommandTimeout),
			wantErr: ErrExtractorTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := paths(t)
			extractor := NewExtractor(&FakeExecutor{ResponseToReturn: tt.resp, ErrorToReturn: tt.err}, Options{}, nil)

			err := extractor.Extract(context.Background(), in, out)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExtractor_Extract_EmptyOutputIsInvalidMedia(t *testing.T) {
	in, out := paths(t)
	fakeExec := &FakeExecutor{
		ResponseToReturn: CommandResponse{Success: true},
		WriteOutput:      []byte{},
	}
	extractor := NewExtractor(fakeExec, Options{}, nil)

	err := extractor.Extract(context.Background(), in, out)

	assert.ErrorIs(t, err, ErrInvalidMedia)
}

func TestStderrTail(t *testing.T) {
	stderr := "banner\n\nline1\nline2\nline3\n"

	assert.Equal(t, "line2 | line3", stderrTail(stderr, 2))
	assert.Equal(t, "banner | line1 | line2 | line3", stderrTail(stderr, 10))
}
