// Package metrics provides Prometheus metrics for monitoring the transcription service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// External command metrics
var (
	// commandExecutionTotal records the total number of external command executions.
	// Labels:
	//   - command: Command name (e.g., "ffmpeg")
	//   - status: Execution status ("success", "failed", "invalid_input", "timeout")
	commandExecutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidscribe_command_executions_total",
			Help: "Total number of external command executions",
		},
		[]string{"command", "status"},
	)

	// commandExecutionDuration records the duration of external command executions.
	// Buckets: 0.1s, 0.5s, 1s, 5s, 10s, 30s, 60s, 300s (5 minutes)
	commandExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidscribe_command_duration_seconds",
			Help:    "Duration of external command executions in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(commandExecutionTotal)
	prometheus.MustRegister(commandExecutionDuration)
}

// RecordCommandExecution records a command execution event.
// Parameters:
//   - command: Command name (e.g., "ffmpeg")
//   - status: Execution status (e.g., "success", "failed", "timeout")
func RecordCommandExecution(command, status string) {
	commandExecutionTotal.WithLabelValues(command, status).Inc()
}

// RecordCommandDuration records the duration of a command execution in seconds.
func RecordCommandDuration(command string, durationSeconds float64) {
	commandExecutionDuration.WithLabelValues(command).Observe(durationSeconds)
}
