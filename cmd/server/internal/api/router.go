package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/houzhh15/vidscribe/cmd/server/internal/audit"
	"github.com/houzhh15/vidscribe/cmd/server/internal/health"
	"github.com/houzhh15/vidscribe/cmd/server/internal/middleware"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Service        Processor
	Checker        *health.Checker
	Audit          audit.Recorder
	Logger         *slog.Logger
	MaxUploadBytes int64
	Env            string
	Version        string
	StartTime      time.Time
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.StartTime.IsZero() {
		deps.StartTime = time.Now()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	// promhttp negotiates its own compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.GET("/health", HandleHealth(deps.Env, deps.Version, deps.StartTime))
	r.GET("/readiness", HandleReadiness(deps.Checker))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/transcribe", HandleTranscribe(deps.Service, deps.Audit, deps.MaxUploadBytes))

	return r
}
