package whisper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/houzhh15/vidscribe/pkg/metrics"
)

var (
	// ErrTranscriptionFailed wraps any backend failure.
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrTranscriptionTimeout is returned when inference exceeds EngineOptions.Timeout.
	ErrTranscriptionTimeout = errors.New("transcription timed out")
)

// EngineOptions configures the shared transcription engine.
type EngineOptions struct {
	Model         string
	BatchSize     int
	Device        string // auto, cpu, cuda
	Timeout       time.Duration
	MaxConcurrent int
}

// Engine is the process-wide transcription service. It is built once in main,
// loaded once with Load, and passed to the request pipeline.
//
// Every inference runs on its own goroutine; at most MaxConcurrent of them
// run at a time so slow inferences cannot starve the HTTP server.
type Engine struct {
	transcriber Transcriber
	opts        EngineOptions
	sem         *semaphore.Weighted
	logger      *slog.Logger
	device      string
}

// NewEngine wraps a Transcriber. Zero options get the defaults used by the
// server: batch size 4, timeout 10 minutes, two concurrent inferences.
func NewEngine(transcriber Transcriber, opts EngineOptions, logger *slog.Logger) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		transcriber: transcriber,
		opts:        opts,
		sem:         semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger:      logger.With("component", "engine", "backend", transcriber.Name()),
		device:      DetectDevice(opts.Device),
	}
}

// Load resolves the compute device and probes the backend once. A failed
// probe is returned for logging; the engine remains usable.
func (e *Engine) Load(ctx context.Context) error {
	e.device = DetectDevice(e.opts.Device)

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	healthy, err := e.transcriber.HealthCheck(checkCtx)
	if err != nil {
		e.logger.Warn("transcription backend not reachable at startup", "device", e.device, "error", err)
		return fmt.Errorf("backend %s health check: %w", e.transcriber.Name(), err)
	}
	e.logger.Info("transcription engine loaded", "device", e.device, "model", e.opts.Model, "healthy", healthy)
	return nil
}

// Device returns the compute device chosen at construction or Load.
func (e *Engine) Device() string {
	return e.device
}

// Name returns the backend name.
func (e *Engine) Name() string {
	return e.transcriber.Name()
}

// HealthCheck delegates to the backend.
func (e *Engine) HealthCheck(ctx context.Context) (bool, error) {
	return e.transcriber.HealthCheck(ctx)
}

type transcribeOutcome struct {
	result *TranscriptionResult
	err    error
}

// Transcribe runs one auto-detect inference with the configured batch size.
//
// Returns ErrTranscriptionTimeout when the engine timeout fires, the caller's
// context error when the caller gave up, and ErrTranscriptionFailed otherwise.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for transcription slot: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	opts := &TranscribeOptions{
		Model:     e.opts.Model,
		BatchSize: e.opts.BatchSize,
		Device:    e.device,
		Timeout:   e.opts.Timeout,
	}

	// the slot is held until the backend returns, even if the caller leaves early
	done := make(chan transcribeOutcome, 1)
	metrics.TranscriptionsInFlight.Inc()
	go func() {
		defer e.sem.Release(1)
		defer metrics.TranscriptionsInFlight.Dec()
		result, err := e.transcriber.Transcribe(runCtx, audioPath, opts)
		done <- transcribeOutcome{result: result, err: err}
	}()

	var out transcribeOutcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		select {
		case out = <-done:
		default:
			out = transcribeOutcome{err: runCtx.Err()}
		}
	}

	switch {
	case out.err == nil && out.result != nil:
		return out.result, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("transcription interrupted: %w", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %v", ErrTranscriptionTimeout, e.opts.Timeout)
	case out.err != nil:
		return nil, fmt.Errorf("%w: %s: %v", ErrTranscriptionFailed, e.transcriber.Name(), out.err)
	default:
		return nil, fmt.Errorf("%w: %s returned no result", ErrTranscriptionFailed, e.transcriber.Name())
	}
}
