package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/vidscribe/cmd/server/internal/audit"
	"github.com/houzhh15/vidscribe/cmd/server/internal/middleware"
	"github.com/houzhh15/vidscribe/cmd/server/internal/transcription"
)

// UploadField is the multipart field carrying the video.
const UploadField = "file"

// VideoIDHeader 响应头中返回本次生成的 video_id
const VideoIDHeader = "X-Video-ID"

// Processor runs the transcription pipeline for one upload.
type Processor interface {
	Process(ctx context.Context, upload io.Reader, filename string) (*transcription.Response, error)
}

// HandleTranscribe 创建 POST /transcribe 处理函数
//
// 请求: multipart/form-data，字段 file
// 响应:
//
//	{
//	  "segments": [{"text": "...", "start": 0.0, "end": 2.4}],
//	  "language": "en",
//	  "filename": "lecture.mp4",
//	  "db_status": "Transcription saved to database"
//	}
//
// The upload is streamed from the request body into the pipeline; a
// maxBytes of 0 disables the size limit.
func HandleTranscribe(svc Processor, recorder audit.Recorder, maxBytes int64) gin.HandlerFunc {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		entry := audit.Entry{
			RequestID: middleware.RequestID(c),
			SourceIP:  c.ClientIP(),
		}
		defer func() {
			entry.DurationMs = time.Since(start).Milliseconds()
			recorder.Record(entry)
		}()

		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		part, err := findFilePart(c.Request)
		if err != nil {
			kind, message := transcription.KindMissingFile, "multipart field \"file\" is required"
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				kind, message = transcription.KindUploadTooLarge, "upload exceeds the configured size limit"
			}
			entry.Result, entry.ErrorKind, entry.Message = audit.ResultRejected, string(kind), message
			errorResponse(c, kind, message)
			return
		}
		defer part.Close()

		entry.Filename = part.FileName()
		resp, err := svc.Process(c.Request.Context(), part, part.FileName())
		if err != nil {
			kind, message := pipelineErrorResponse(c, err)
			entry.Result, entry.ErrorKind, entry.Message = audit.ResultFailed, string(kind), message
			return
		}

		entry.Result = audit.ResultSuccess
		entry.VideoID = resp.VideoID
		entry.Language = resp.Language
		entry.Segments = len(resp.Segments)
		entry.DBStatus = resp.DBStatus

		c.Header(VideoIDHeader, resp.VideoID)
		c.JSON(http.StatusOK, resp)
	}
}

// findFilePart advances the multipart stream to the upload field.
func findFilePart(r *http.Request) (*multipart.Part, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no file part")
			}
			return nil, err
		}
		if part.FormName() == UploadField {
			return part, nil
		}
		part.Close()
	}
}
