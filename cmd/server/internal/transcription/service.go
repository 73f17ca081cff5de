// Package transcription runs the upload → extract → transcribe → language →
// persist pipeline for a single request.
package transcription

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/houzhh15/vidscribe/cmd/server/internal/store"
	"github.com/houzhh15/vidscribe/cmd/server/internal/whisper"
	"github.com/houzhh15/vidscribe/pkg/logger"
	"github.com/houzhh15/vidscribe/pkg/metrics"
)

// Pipeline stages, used as log and metric labels.
const (
	StageUpload     = "upload"
	StageExtract    = "extract"
	StageTranscribe = "transcribe"
	StageLanguage   = "language"
	StagePersist    = "persist"
)

const (
	// PlaceholderText fills the synthesized segment when the engine returned no text.
	PlaceholderText = "No transcription available"

	DBStatusSaved  = "Transcription saved to database"
	DBStatusFailed = "Failed to save transcription to database"

	defaultPersistTimeout = 10 * time.Second
)

// AudioExtractor converts the uploaded container into a waveform file.
type AudioExtractor interface {
	Extract(ctx context.Context, inputPath, outputPath string) error
}

// SpeechEngine 已加载的转写引擎
type SpeechEngine interface {
	Transcribe(ctx context.Context, audioPath string) (*whisper.TranscriptionResult, error)
}

// LanguageResolver 语言兜底检测
type LanguageResolver interface {
	Resolve(ctx context.Context, reported string, segments []whisper.TranscriptionSegment) string
}

// Response is the JSON body of a successful /transcribe call.
type Response struct {
	Segments []store.Segment `json:"segments"`
	Language string          `json:"language"`
	Filename string          `json:"filename"`
	DBStatus string          `json:"db_status"`

	// VideoID is exposed as a header, not in the body.
	VideoID string `json:"-"`
}

// Options 流水线可选参数
type Options struct {
	TempDir        string
	PersistTimeout time.Duration
}

// Service 单请求转写流水线
type Service struct {
	extractor AudioExtractor
	engine    SpeechEngine
	resolver  LanguageResolver
	sink      store.Sink
	opts      Options
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires the pipeline. sink may be nil, in which case every
// request reports the database failure status.
func NewService(extractor AudioExtractor, engine SpeechEngine, resolver LanguageResolver, sink store.Sink, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	return &Service{
		extractor: extractor,
		engine:    engine,
		resolver:  resolver,
		sink:      sink,
		opts:      opts,
		logger:    log.With("component", "transcription"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Process handles one uploaded video. Both temp files are removed before it
// returns, whatever the outcome. Errors are always *Error.
func (s *Service) Process(ctx context.Context, upload io.Reader, filename string) (*Response, error) {
	videoID := s.newID()
	log := s.logger.With("video_id", videoID, "filename", filename)

	resp, err := s.process(ctx, log, videoID, upload, filename)
	if err != nil {
		kind := KindOf(err)
		metrics.RecordRequest(string(kind))
		log.Warn("transcription request failed", "error_kind", kind, "error", err)
		return nil, err
	}

	metrics.RecordRequest("")
	log.Info("transcription request completed",
		"language", resp.Language,
		"segments", len(resp.Segments),
		"db_status", resp.DBStatus,
	)
	return resp, nil
}

func (s *Service) process(ctx context.Context, log *slog.Logger, videoID string, upload io.Reader, filename string) (*Response, error) {
	if upload == nil {
		return nil, NewError(KindMissingFile, StageUpload, "no file uploaded", nil)
	}

	var tempFiles []string
	defer func() { s.cleanup(log, tempFiles) }()

	// 1. upload → temp container
	start := time.Now()
	videoPath, err := s.bufferUpload(ctx, videoID, upload)
	if videoPath != "" {
		tempFiles = append(tempFiles, videoPath)
	}
	if err != nil {
		return nil, s.stageFailed(log, StageUpload, videoID, start, err)
	}
	s.stageDone(log, StageUpload, videoID, start)

	// 2. container → waveform
	start = time.Now()
	wavPath, err := s.reserveTemp(videoID, ".wav")
	if wavPath != "" {
		tempFiles = append(tempFiles, wavPath)
	}
	if err != nil {
		return nil, s.stageFailed(log, StageExtract, videoID, start,
			NewError(KindInternal, StageExtract, "failed to create waveform file", err))
	}
	if err := s.extractor.Extract(ctx, videoPath, wavPath); err != nil {
		return nil, s.stageFailed(log, StageExtract, videoID, start, classifyExtract(ctx, err))
	}
	s.stageDone(log, StageExtract, videoID, start)

	// 3. waveform → segments
	start = time.Now()
	result, err := s.engine.Transcribe(ctx, wavPath)
	if err != nil {
		return nil, s.stageFailed(log, StageTranscribe, videoID, start, classifyTranscribe(ctx, err))
	}
	s.stageDone(log, StageTranscribe, videoID, start)

	segments, placeholder := Normalize(result)

	// 4. language
	// the placeholder is not speech, detection only sees real transcript text
	detectOn := segments
	if placeholder {
		detectOn = nil
	}
	start = time.Now()
	language := s.resolver.Resolve(ctx, result.Language, detectOn)
	s.stageDone(log, StageLanguage, videoID, start)

	// 5. persist
	stored := store.SegmentsFrom(segments)
	dbStatus := s.persist(ctx, log, store.NewRecord(videoID, filename, stored, language, s.now()))

	return &Response{
		Segments: stored,
		Language: language,
		Filename: filename,
		DBStatus: dbStatus,
		VideoID:  videoID,
	}, nil
}

// Normalize returns the engine's segments, or a single zero-length segment
// carrying the top-level text when there are none. placeholder is true when
// that segment holds PlaceholderText because the engine produced no text at all.
func Normalize(result *whisper.TranscriptionResult) (segments []whisper.TranscriptionSegment, placeholder bool) {
	if result != nil && len(result.Segments) > 0 {
		return result.Segments, false
	}
	if result != nil && result.Text != "" {
		return []whisper.TranscriptionSegment{{Text: result.Text, Start: 0, End: 0}}, false
	}
	return []whisper.TranscriptionSegment{{Text: PlaceholderText, Start: 0, End: 0}}, true
}

// persist 写库失败不影响响应，只降级 db_status
func (s *Service) persist(ctx context.Context, log *slog.Logger, record *store.Record) string {
	start := time.Now()
	if s.sink == nil {
		metrics.RecordPersist(false)
		s.stageFailed(log, StagePersist, record.VideoID, start, store.ErrNotConnected)
		return DBStatusFailed
	}

	// the transcription already succeeded; a client disconnect must not drop the record
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()

	if err := s.sink.Insert(persistCtx, record); err != nil {
		metrics.RecordPersist(false)
		s.stageFailed(log, StagePersist, record.VideoID, start, err)
		return DBStatusFailed
	}
	metrics.RecordPersist(true)
	s.stageDone(log, StagePersist, record.VideoID, start)
	return DBStatusSaved
}

func (s *Service) bufferUpload(ctx context.Context, videoID string, upload io.Reader) (string, error) {
	f, err := os.CreateTemp(s.opts.TempDir, "vid-"+videoID+"-*.mp4")
	if err != nil {
		return "", NewError(KindInternal, StageUpload, "failed to create upload file", err)
	}
	path := f.Name()

	_, copyErr := io.Copy(f, readerWithContext(ctx, upload))
	closeErr := f.Close()
	if copyErr != nil {
		return path, classifyUpload(ctx, copyErr)
	}
	if closeErr != nil {
		return path, NewError(KindInternal, StageUpload, "failed to flush upload file", closeErr)
	}
	return path, nil
}

// reserveTemp creates an empty uniquely named file; ffmpeg overwrites it.
func (s *Service) reserveTemp(videoID, suffix string) (string, error) {
	f, err := os.CreateTemp(s.opts.TempDir, "vid-"+videoID+"-*"+suffix)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return path, err
	}
	return path, nil
}

func (s *Service) cleanup(log *slog.Logger, paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove temp file", "path", filepath.Base(path), "error", err)
		}
	}
}

func (s *Service) stageDone(log *slog.Logger, stage, videoID string, start time.Time) {
	elapsed := time.Since(start)
	metrics.RecordStage(stage, elapsed.Seconds())
	logger.LogStage(log, stage, "success", videoID, elapsed.Milliseconds(), "")
}

func (s *Service) stageFailed(log *slog.Logger, stage, videoID string, start time.Time, err error) error {
	elapsed := time.Since(start)
	metrics.RecordStage(stage, elapsed.Seconds())
	kind := KindOf(err)
	if stage == StagePersist {
		kind = "persist_failed"
	}
	logger.LogStage(log, stage, "error", videoID, elapsed.Milliseconds(), string(kind))
	log.Debug("stage error detail", "stage", stage, "error", err)
	return err
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}

