package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 定义日志初始化配置
// Level 支持 debug/info/warn/error，Environment 为 prod 或 Format 为 json 时输出 JSON
// WithSource 控制是否记录源码位置
// FilePath 非空时同时写入按大小滚动的日志文件
type Config struct {
	Level       string
	Environment string
	Format      string
	WithSource  bool
	FilePath    string
}

var (
	global *slog.Logger
	once   sync.Once
)

func levelFromString(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("invalid log level: " + level)
	}
}

// output 返回日志写入目标，配置文件路径时 stdout 与滚动文件同时写入
func output(cfg Config) io.Writer {
	if cfg.FilePath == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
}

// New 根据配置创建新的 slog.Logger，不设置全局实例
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := levelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl, AddSource: cfg.WithSource}
	w := output(cfg)
	var handler slog.Handler
	env := strings.ToLower(cfg.Environment)
	if env == "prod" || env == "production" || strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler), nil
}

// Init 初始化全局日志实例并设为 slog 默认 logger，重复调用将返回首次创建的 logger
func Init(cfg Config) (*slog.Logger, error) {
	var initErr error
	once.Do(func() {
		global, initErr = New(cfg)
		if initErr == nil {
			slog.SetDefault(global)
		}
	})
	return global, initErr
}

// LogStage 记录转写流水线单个阶段的结构化日志
// stage: upload/extract/transcribe/language/persist
// action: start/success/error
// videoID: 本次请求生成的视频 ID
// durationMs: 阶段耗时（毫秒）
// errorKind: 错误类型（可选）
func LogStage(logger *slog.Logger, stage, action, videoID string, durationMs int64, errorKind string) {
	attrs := []slog.Attr{
		slog.String("stage", stage),
		slog.String("action", action),
		slog.String("video_id", videoID),
		slog.Int64("duration_ms", durationMs),
	}

	if errorKind != "" {
		attrs = append(attrs, slog.String("error_kind", errorKind))
		logger.LogAttrs(context.Background(), slog.LevelError, "pipeline stage failed", attrs...)
	} else {
		logger.LogAttrs(context.Background(), slog.LevelInfo, "pipeline stage", attrs...)
	}
}
