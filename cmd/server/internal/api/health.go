package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/vidscribe/cmd/server/internal/health"
)

// ServiceName is reported by the liveness probe.
const ServiceName = "vidscribe"

// HealthCheckResponse represents the response from the health check endpoint
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Env       string    `json:"env"`
}

// ReadinessCheckResponse represents the response from the readiness check endpoint
type ReadinessCheckResponse struct {
	Ready     bool             `json:"ready"`
	Checks    []ReadinessCheck `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// ReadinessCheck represents a single readiness check
type ReadinessCheck struct {
	Name     string `json:"name"`
	Status   string `json:"status"` // "ok" or "fail"
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

// HandleHealth returns the liveness probe handler
func HandleHealth(env, version string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthCheckResponse{
			Status:    "healthy",
			Service:   ServiceName,
			Version:   version,
			Uptime:    time.Since(startTime).String(),
			Timestamp: time.Now(),
			Env:       env,
		})
	}
}

// HandleReadiness runs the dependency probes and returns 503 when a
// critical one is failing.
func HandleReadiness(checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.JSON(http.StatusServiceUnavailable, ReadinessCheckResponse{Timestamp: time.Now()})
			return
		}

		report := checker.Check(c.Request.Context())
		checks := make([]ReadinessCheck, 0, len(report.Services))
		for _, st := range report.Services {
			check := ReadinessCheck{Name: st.Name, Status: "ok", Critical: st.Critical}
			if !st.IsHealthy {
				check.Status = "fail"
				check.Error = st.ErrorMessage
			}
			checks = append(checks, check)
		}

		status := http.StatusOK
		if !report.Ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, ReadinessCheckResponse{
			Ready:     report.Ready,
			Checks:    checks,
			Timestamp: time.Now(),
		})
	}
}
