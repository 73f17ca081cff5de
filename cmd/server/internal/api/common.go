package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/vidscribe/cmd/server/internal/middleware"
	"github.com/houzhh15/vidscribe/cmd/server/internal/transcription"
)

// ErrorResponse 统一错误响应体
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// errorResponse 按错误类型返回对应状态码
func errorResponse(c *gin.Context, kind transcription.ErrorKind, message string) {
	c.JSON(kind.HTTPStatus(), ErrorResponse{
		Error:     string(kind),
		Message:   message,
		RequestID: middleware.RequestID(c),
	})
}

// pipelineErrorResponse unwraps a pipeline error into the response body.
func pipelineErrorResponse(c *gin.Context, err error) (transcription.ErrorKind, string) {
	kind := transcription.KindOf(err)
	message := "internal error"
	var pe *transcription.Error
	if errors.As(err, &pe) {
		message = pe.Message
	}
	errorResponse(c, kind, message)
	return kind, message
}
