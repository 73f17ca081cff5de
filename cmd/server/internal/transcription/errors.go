package transcription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/houzhh15/vidscribe/cmd/server/internal/audio"
	"github.com/houzhh15/vidscribe/cmd/server/internal/whisper"
)

// ErrorKind 转写请求失败类型，同时作为响应体中的 error 字段
type ErrorKind string

const (
	// KindMissingFile 请求中没有上传文件
	KindMissingFile ErrorKind = "missing_file"

	// KindUploadTooLarge 上传超过 MAX_UPLOAD_BYTES
	KindUploadTooLarge ErrorKind = "upload_too_large"

	// KindInvalidMedia ffmpeg 无法解析上传内容
	KindInvalidMedia ErrorKind = "invalid_media"

	// KindExtractorUnavailable ffmpeg 缺失或异常退出
	KindExtractorUnavailable ErrorKind = "extractor_unavailable"

	// KindTranscriptionFailed 推理后端返回错误
	KindTranscriptionFailed ErrorKind = "transcription_failed"

	// KindTimeout 抽取或推理超时
	KindTimeout ErrorKind = "timeout"

	// KindCanceled 客户端断开
	KindCanceled ErrorKind = "canceled"

	// KindInternal 其他内部错误（临时文件等）
	KindInternal ErrorKind = "internal"
)

// StatusClientClosedRequest is the nginx convention for a client that went away.
const StatusClientClosedRequest = 499

// HTTPStatus maps a kind onto the response status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindMissingFile:
		return http.StatusBadRequest
	case KindUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindInvalidMedia:
		return http.StatusUnprocessableEntity
	case KindExtractorUnavailable, KindTranscriptionFailed:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error 表示流水线某个阶段的失败
type Error struct {
	Kind      ErrorKind `json:"error"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap 实现错误链支持
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError 创建流水线错误
func NewError(kind ErrorKind, stage, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Stage:     stage,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// KindOf returns the kind carried by err, or KindInternal.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// contextKind distinguishes a caller deadline from a disconnect.
func contextKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindCanceled
}

func classifyUpload(ctx context.Context, err error) *Error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return NewError(KindUploadTooLarge, StageUpload,
			fmt.Sprintf("upload exceeds the %d byte limit", tooLarge.Limit), err)
	case ctx.Err() != nil:
		return NewError(contextKind(ctx.Err()), StageUpload, "upload interrupted", ctx.Err())
	default:
		return NewError(KindInternal, StageUpload, "failed to buffer upload", err)
	}
}

func classifyExtract(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(err, audio.ErrInvalidMedia):
		return NewError(KindInvalidMedia, StageExtract, "uploaded file has no decodable audio track", err)
	case errors.Is(err, audio.ErrExtractorTimeout):
		return NewError(KindTimeout, StageExtract, "audio extraction timed out", err)
	case ctx.Err() != nil:
		return NewError(contextKind(ctx.Err()), StageExtract, "audio extraction interrupted", ctx.Err())
	case errors.Is(err, audio.ErrExtractorUnavailable):
		return NewError(KindExtractorUnavailable, StageExtract, "audio extractor failed", err)
	default:
		return NewError(KindExtractorUnavailable, StageExtract, "audio extraction failed", err)
	}
}

func classifyTranscribe(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(err, whisper.ErrTranscriptionTimeout):
		return NewError(KindTimeout, StageTranscribe, "transcription timed out", err)
	case ctx.Err() != nil:
		return NewError(contextKind(ctx.Err()), StageTranscribe, "transcription interrupted", ctx.Err())
	default:
		return NewError(KindTranscriptionFailed, StageTranscribe, "transcription failed", err)
	}
}
