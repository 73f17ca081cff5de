package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/houzhh15/vidscribe/cmd/server/internal/langdetect"
)

// Config 统一配置结构
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Whisper    WhisperConfig    `yaml:"whisper"`
	LangDetect LangDetectConfig `yaml:"langdetect"`
	Upload     UploadConfig     `yaml:"upload"`
	Audit      AuditConfig      `yaml:"audit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env  string `yaml:"env"` // dev, staging, production
	Port string `yaml:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`   // optional rotating log file
}

// DatabaseConfig MongoDB 配置
type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	Name           string        `yaml:"name"`
	Collection     string        `yaml:"collection"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ExtractorConfig ffmpeg 音频抽取配置
type ExtractorConfig struct {
	BinaryPath string        `yaml:"binary_path"`
	Timeout    time.Duration `yaml:"timeout"`
	SampleRate int           `yaml:"sample_rate"`
	Channels   int           `yaml:"channels"`
}

// WhisperConfig 转写引擎配置
type WhisperConfig struct {
	Backend       string        `yaml:"backend"` // http, local, mock
	URL           string        `yaml:"url"`
	Program       string        `yaml:"program"`
	Model         string        `yaml:"model"`
	BatchSize     int           `yaml:"batch_size"`
	Device        string        `yaml:"device"` // auto, cpu, cuda
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
}

// LangDetectConfig 语言兜底检测配置
type LangDetectConfig struct {
	// Languages 候选语言的 ISO 639-1 代码，为空时加载全部语言模型
	Languages []string `yaml:"languages"`
}

// UploadConfig 上传与临时文件配置
type UploadConfig struct {
	MaxBytes int64  `yaml:"max_bytes"` // 0 means unlimited
	TempDir  string `yaml:"temp_dir"`
}

// AuditConfig 审计日志配置
type AuditConfig struct {
	LogPath string `yaml:"log_path"`
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Env: "dev", Port: "8000"},
		Log:    LogConfig{Level: "info", Format: "console"},
		Database: DatabaseConfig{
			URL:            "mongodb://localhost:27017",
			Name:           "StellaLearnDB",
			Collection:     "transcriptions",
			ConnectTimeout: 10 * time.Second,
		},
		Extractor: ExtractorConfig{
			BinaryPath: "ffmpeg",
			Timeout:    5 * time.Minute,
			SampleRate: 8000,
			Channels:   1,
		},
		Whisper: WhisperConfig{
			Backend:       "http",
			URL:           "http://localhost:8082",
			Program:       "/app/bin/whisper",
			Model:         "whisper-ct2",
			BatchSize:     4,
			Device:        "auto",
			Timeout:       10 * time.Minute,
			MaxConcurrent: 2,
		},
		Upload: UploadConfig{TempDir: os.TempDir()},
		Audit:  AuditConfig{LogPath: "./audit_logs/transcriptions.log"},
	}
}

// LoadConfig 加载配置，优先级：环境变量 > CONFIG_FILE 指定的 YAML > 默认值
// 当前目录存在 .env 时先将其载入环境变量（不覆盖已有变量）
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile 读取 YAML 配置文件覆盖默认值
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	cfg.Server.Env = getEnv("ENV", cfg.Server.Env)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	cfg.Database.URL = getEnv("DB_URL", cfg.Database.URL)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.Collection = getEnv("DB_COLLECTION", cfg.Database.Collection)
	cfg.Database.ConnectTimeout = getEnvDuration("DB_CONNECT_TIMEOUT", cfg.Database.ConnectTimeout, &errs)

	cfg.Extractor.BinaryPath = getEnv("FFMPEG_PATH", cfg.Extractor.BinaryPath)
	cfg.Extractor.Timeout = getEnvDuration("FFMPEG_TIMEOUT", cfg.Extractor.Timeout, &errs)
	cfg.Extractor.SampleRate = getEnvInt("AUDIO_SAMPLE_RATE", cfg.Extractor.SampleRate, &errs)
	cfg.Extractor.Channels = getEnvInt("AUDIO_CHANNELS", cfg.Extractor.Channels, &errs)

	cfg.Whisper.Backend = getEnv("WHISPER_BACKEND", cfg.Whisper.Backend)
	cfg.Whisper.URL = getEnv("WHISPER_URL", cfg.Whisper.URL)
	cfg.Whisper.Program = getEnv("WHISPER_PROGRAM", cfg.Whisper.Program)
	cfg.Whisper.Model = getEnv("WHISPER_MODEL", cfg.Whisper.Model)
	cfg.Whisper.BatchSize = getEnvInt("WHISPER_BATCH_SIZE", cfg.Whisper.BatchSize, &errs)
	cfg.Whisper.Device = getEnv("DEVICE", cfg.Whisper.Device)
	cfg.Whisper.Timeout = getEnvDuration("TRANSCRIBE_TIMEOUT", cfg.Whisper.Timeout, &errs)
	cfg.Whisper.MaxConcurrent = getEnvInt("MAX_CONCURRENT_TRANSCRIPTIONS", cfg.Whisper.MaxConcurrent, &errs)
	cfg.LangDetect.Languages = getEnvList("LANGDETECT_LANGUAGES", cfg.LangDetect.Languages)

	cfg.Upload.MaxBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(cfg.Upload.MaxBytes), &errs))
	cfg.Upload.TempDir = getEnv("TEMP_DIR", cfg.Upload.TempDir)

	cfg.Audit.LogPath = getEnv("AUDIT_LOG_PATH", cfg.Audit.LogPath)

	return errors.Join(errs...)
}

// ValidateConfig 验证配置的有效性
func ValidateConfig(cfg *Config) error {
	var errors []string

	// 1. 端口验证
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	// 2. 日志级别验证
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	// 3. 日志格式验证
	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[cfg.Log.Format] {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be: console, json)", cfg.Log.Format))
	}

	// 4. 环境验证
	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	// 5. 数据库
	if !strings.HasPrefix(cfg.Database.URL, "mongodb://") && !strings.HasPrefix(cfg.Database.URL, "mongodb+srv://") {
		errors = append(errors, "DB_URL must start with mongodb:// or mongodb+srv://")
	}
	if cfg.Database.Name == "" || cfg.Database.Collection == "" {
		errors = append(errors, "DB_NAME and DB_COLLECTION cannot be empty")
	}
	if cfg.Database.ConnectTimeout <= 0 {
		errors = append(errors, "DB_CONNECT_TIMEOUT must be greater than 0")
	}

	// 6. ffmpeg
	if cfg.Extractor.BinaryPath == "" {
		errors = append(errors, "FFMPEG_PATH cannot be empty")
	}
	if cfg.Extractor.Timeout <= 0 {
		errors = append(errors, "FFMPEG_TIMEOUT must be greater than 0")
	}
	if cfg.Extractor.SampleRate <= 0 || cfg.Extractor.Channels <= 0 {
		errors = append(errors, "AUDIO_SAMPLE_RATE and AUDIO_CHANNELS must be greater than 0")
	}

	// 7. 转写引擎
	switch cfg.Whisper.Backend {
	case "http":
		if cfg.Whisper.URL == "" {
			errors = append(errors, "WHISPER_URL is required for http backend")
		}
	case "local":
		if cfg.Whisper.Program == "" {
			errors = append(errors, "WHISPER_PROGRAM is required for local backend")
		}
	case "mock":
	default:
		errors = append(errors, fmt.Sprintf("invalid WHISPER_BACKEND: %s (must be: http, local, mock)", cfg.Whisper.Backend))
	}
	validDevices := map[string]bool{"auto": true, "cpu": true, "cuda": true}
	if !validDevices[cfg.Whisper.Device] {
		errors = append(errors, fmt.Sprintf("invalid DEVICE: %s (must be: auto, cpu, cuda)", cfg.Whisper.Device))
	}
	if cfg.Whisper.BatchSize <= 0 {
		errors = append(errors, "WHISPER_BATCH_SIZE must be greater than 0")
	}
	if cfg.Whisper.Timeout <= 0 {
		errors = append(errors, "TRANSCRIBE_TIMEOUT must be greater than 0")
	}
	if cfg.Whisper.MaxConcurrent <= 0 {
		errors = append(errors, "MAX_CONCURRENT_TRANSCRIPTIONS must be greater than 0")
	}

	if len(cfg.LangDetect.Languages) > 0 {
		if _, err := langdetect.ParseLanguages(cfg.LangDetect.Languages); err != nil {
			errors = append(errors, fmt.Sprintf("invalid LANGDETECT_LANGUAGES: %v", err))
		}
	}

	// 8. 上传
	if cfg.Upload.MaxBytes < 0 {
		errors = append(errors, "MAX_UPLOAD_BYTES cannot be negative")
	}
	if cfg.Upload.TempDir == "" {
		errors = append(errors, "TEMP_DIR cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetServerAddr 获取服务器监听地址
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// PrintConfig 打印配置（脱敏）
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Logging:
    - Level: %s
    - Format: %s
  Database:
    - URL: %s
    - Name: %s
    - Collection: %s
  Extractor:
    - Binary: %s
    - Timeout: %s
    - Output: %d Hz, %d channel(s)
  Whisper:
    - Backend: %s
    - Model: %s
    - Device: %s
    - Batch Size: %d
    - Timeout: %s
    - Max Concurrent: %d
  Language Detection:
    - Languages: %s
  Upload:
    - Max Bytes: %d
    - Temp Dir: %s`,
		c.Server.Env,
		c.Server.Port,
		c.Log.Level,
		c.Log.Format,
		maskURL(c.Database.URL),
		c.Database.Name,
		c.Database.Collection,
		c.Extractor.BinaryPath,
		c.Extractor.Timeout,
		c.Extractor.SampleRate,
		c.Extractor.Channels,
		c.Whisper.Backend,
		c.Whisper.Model,
		c.Whisper.Device,
		c.Whisper.BatchSize,
		c.Whisper.Timeout,
		c.Whisper.MaxConcurrent,
		detectLanguages(c.LangDetect.Languages),
		c.Upload.MaxBytes,
		c.Upload.TempDir,
	)
}

// 辅助函数

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList 读取逗号分隔的列表，空白项被忽略
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func detectLanguages(codes []string) string {
	if len(codes) == 0 {
		return "all"
	}
	return strings.Join(codes, ",")
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

// maskSecret 对敏感信息进行脱敏
func maskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

// maskURL 隐藏连接串中的密码
// 在原串上替换密码段，url.String() 会把掩码里的 * 重新编码成 %2A
// 无法解析的连接串整体脱敏
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return maskSecret(raw)
	}
	if u.User == nil {
		return raw
	}
	pass, ok := u.User.Password()
	if !ok {
		return raw
	}

	start := strings.Index(raw, "://")
	if start < 0 {
		return maskSecret(raw)
	}
	start += len("://")
	authority := raw[start:]
	if end := strings.IndexAny(authority, "/?#"); end >= 0 {
		authority = authority[:end]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return maskSecret(raw)
	}
	colon := strings.Index(authority[:at], ":")
	if colon < 0 {
		return maskSecret(raw)
	}
	return raw[:start+colon+1] + maskSecret(pass) + raw[start+at:]
}
