package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TranscriptionRequestsTotal counts finished /transcribe requests.
	// Labels: status (success/error), error_kind (empty on success)
	TranscriptionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidscribe_transcription_requests_total",
			Help: "Total number of transcription requests by outcome",
		},
		[]string{"status", "error_kind"},
	)

	// StageDuration observes pipeline stage latency in seconds.
	// Labels: stage (upload/extract/transcribe/language/persist)
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidscribe_stage_duration_seconds",
			Help:    "Transcription pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	// TranscriptionsInFlight 当前正在执行推理的请求数
	TranscriptionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidscribe_transcriptions_in_flight",
			Help: "Number of transcriptions currently running on the engine",
		},
	)

	// LanguageFallbackTotal counts fallback detections.
	// Labels: result (detected/unknown)
	LanguageFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidscribe_language_fallback_total",
			Help: "Total number of statistical language detection fallbacks by result",
		},
		[]string{"result"},
	)

	// PersistTotal counts record inserts.
	// Labels: status (success/error)
	PersistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidscribe_persist_total",
			Help: "Total number of transcription record inserts by status",
		},
		[]string{"status"},
	)
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordRequest 记录一次请求结果
func RecordRequest(errorKind string) {
	TranscriptionRequestsTotal.WithLabelValues(statusLabel(errorKind == ""), errorKind).Inc()
}

// RecordStage 记录阶段耗时（秒）
func RecordStage(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordLanguageFallback 记录语言检测兜底结果
func RecordLanguageFallback(detected bool) {
	result := "unknown"
	if detected {
		result = "detected"
	}
	LanguageFallbackTotal.WithLabelValues(result).Inc()
}

// RecordPersist 记录入库结果
func RecordPersist(success bool) {
	PersistTotal.WithLabelValues(statusLabel(success)).Inc()
}
