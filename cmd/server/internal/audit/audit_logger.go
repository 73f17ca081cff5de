package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Result 审计结果
type Result string

const (
	ResultSuccess  Result = "success"
	ResultFailed   Result = "failed"
	ResultRejected Result = "rejected"
)

// Entry is one line in the audit log.
type Entry struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id"`
	VideoID    string `json:"video_id,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Result     Result `json:"result"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Message    string `json:"error_message,omitempty"`
	Language   string `json:"language,omitempty"`
	Segments   int    `json:"segments,omitempty"`
	DBStatus   string `json:"db_status,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	SourceIP   string `json:"source_ip"`
}

// Recorder 审计日志接口
type Recorder interface {
	Record(entry Entry)
}

// Logger 基于 lumberjack 的审计日志，每个请求一行 JSON
type Logger struct {
	mu     sync.Mutex
	logger *log.Logger
	closer io.Closer
	now    func() time.Time
}

// NewLogger creates an audit logger writing to logPath with rotation.
func NewLogger(logPath string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}

	return &Logger{
		logger: log.New(writer, "", 0),
		closer: writer,
		now:    time.Now,
	}, nil
}

// Record 写入一条审计记录，时间戳为空时自动补齐
func (a *Logger) Record(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = a.now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger.Println(string(data))
}

// Close flushes and closes the underlying file.
func (a *Logger) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Nop discards entries; used when AUDIT_LOG_PATH is empty.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Entry) {}
