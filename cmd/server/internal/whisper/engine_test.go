package whisper

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTranscriber records options and can block until released.
type fakeTranscriber struct {
	result  *TranscriptionResult
	err     error
	delay   time.Duration
	healthy bool

	mu       sync.Mutex
	options  []*TranscribeOptions
	running  atomic.Int32
	maxInUse atomic.Int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	f.mu.Lock()
	f.options = append(f.options, options)
	f.mu.Unlock()

	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		max := f.maxInUse.Load()
		if n <= max || f.maxInUse.CompareAndSwap(max, n) {
			break
		}
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	if !f.healthy {
		return false, errors.New("connection refused")
	}
	return true, nil
}

func (f *fakeTranscriber) Name() string { return "fake" }

func TestEngine_TranscribePassesOptions(t *testing.T) {
	fake := &fakeTranscriber{result: &TranscriptionResult{Language: "en"}}
	engine := NewEngine(fake, EngineOptions{Model: "whisper-ct2", Device: "cpu"}, nil)

	result, err := engine.Transcribe(context.Background(), "/tmp/a.wav")

	require.NoError(t, err)
	assert.Equal(t, "en", result.Language)
	require.Len(t, fake.options, 1)
	opts := fake.options[0]
	assert.Equal(t, 4, opts.BatchSize)
	assert.Equal(t, "", opts.Language, "no language hint")
	assert.Equal(t, "cpu", opts.Device)
	assert.Equal(t, "whisper-ct2", opts.Model)
}

func TestEngine_TranscribeErrors(t *testing.T) {
	t.Run("backend failure", func(t *testing.T) {
		engine := NewEngine(&fakeTranscriber{err: errors.New("CUDA out of memory")}, EngineOptions{}, nil)

		_, err := engine.Transcribe(context.Background(), "/tmp/a.wav")

		assert.ErrorIs(t, err, ErrTranscriptionFailed)
		assert.Contains(t, err.Error(), "CUDA out of memory")
	})

	t.Run("nil result", func(t *testing.T) {
		engine := NewEngine(&fakeTranscriber{}, EngineOptions{}, nil)

		_, err := engine.Transcribe(context.Background(), "/tmp/a.wav")

		assert.ErrorIs(t, err, ErrTranscriptionFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		fake := &fakeTranscriber{result: &TranscriptionResult{}, delay: time.Second}
		engine := NewEngine(fake, EngineOptions{Timeout: 50 * time.Millisecond}, nil)

		_, err := engine.Transcribe(context.Background(), "/tmp/a.wav")

		assert.ErrorIs(t, err, ErrTranscriptionTimeout)
	})

	t.Run("caller cancellation", func(t *testing.T) {
		fake := &fakeTranscriber{result: &TranscriptionResult{}, delay: time.Second}
		engine := NewEngine(fake, EngineOptions{}, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := engine.Transcribe(ctx, "/tmp/a.wav")

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrTranscriptionTimeout)
	})
}

func TestEngine_BoundsConcurrency(t *testing.T) {
	fake := &fakeTranscriber{result: &TranscriptionResult{}, delay: 50 * time.Millisecond}
	engine := NewEngine(fake, EngineOptions{MaxConcurrent: 2}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Transcribe(context.Background(), "/tmp/a.wav")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, fake.maxInUse.Load(), int32(2))
	assert.Equal(t, int32(0), fake.running.Load())
}

func TestEngine_Load(t *testing.T) {
	healthy := NewEngine(&fakeTranscriber{healthy: true}, EngineOptions{Device: "cpu"}, nil)
	assert.NoError(t, healthy.Load(context.Background()))
	assert.Equal(t, "cpu", healthy.Device())

	down := NewEngine(&fakeTranscriber{}, EngineOptions{Device: "cpu"}, nil)
	err := down.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDetectDevice(t *testing.T) {
	origLook, origStat := lookPath, statFile
	t.Cleanup(func() { lookPath, statFile = origLook, origStat })

	notFound := func(string) (string, error) { return "", errors.New("not found") }
	noFile := func(string) (os.FileInfo, error) { return nil, os.ErrNotExist }

	lookPath, statFile = notFound, noFile
	assert.Equal(t, DeviceCPU, DetectDevice("auto"))
	assert.Equal(t, DeviceCUDA, DetectDevice("cuda"), "explicit choice is kept")

	lookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	assert.Equal(t, DeviceCUDA, DetectDevice(""))

	lookPath = notFound
	statFile = func(string) (os.FileInfo, error) { return nil, nil }
	assert.Equal(t, DeviceCUDA, DetectDevice("auto"))
}
