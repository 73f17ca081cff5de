// Package health tracks the readiness of the service's external
// collaborators: ffmpeg, the whisper backend and MongoDB.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const defaultProbeTimeout = 10 * time.Second

// ProbeFunc returns nil when the dependency is usable.
type ProbeFunc func(ctx context.Context) error

// ServiceStatus is the last known state of one dependency.
type ServiceStatus struct {
	Name             string    `json:"name"`
	IsHealthy        bool      `json:"is_healthy"`
	LastCheckTime    time.Time `json:"last_check_time"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	// Critical probes make the service not ready when they fail.
	Critical bool `json:"critical"`
}

// Report 一次就绪检查的汇总结果
type Report struct {
	Ready    bool            `json:"ready"`
	Services []ServiceStatus `json:"services"`
}

type probe struct {
	name     string
	fn       ProbeFunc
	critical bool
}

// Checker runs dependency probes on demand and, after Start, periodically.
//
// Thread-safety: all public methods are safe for concurrent use.
type Checker struct {
	probes        []probe
	status        map[string]*ServiceStatus
	mu            sync.RWMutex
	checkInterval time.Duration
	failThreshold int
	probeTimeout  time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	logger        *slog.Logger
}

// NewChecker creates a Checker. A dependency is reported unhealthy after
// failThreshold consecutive failed probes.
func NewChecker(checkInterval time.Duration, failThreshold int, logger *slog.Logger) *Checker {
	if failThreshold < 1 {
		failThreshold = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		status:        make(map[string]*ServiceStatus),
		checkInterval: checkInterval,
		failThreshold: failThreshold,
		probeTimeout:  defaultProbeTimeout,
		stopChan:      make(chan struct{}),
		logger:        logger.With("component", "health"),
	}
}

// Register adds a named probe. Must be called before Start.
func (hc *Checker) Register(name string, critical bool, fn ProbeFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.probes = append(hc.probes, probe{name: name, fn: fn, critical: critical})
	// optimistic until the first check
	hc.status[name] = &ServiceStatus{Name: name, IsHealthy: true, Critical: critical}
}

// Start performs an immediate check and then one every checkInterval until
// Stop is called or ctx is done. It blocks; run it on its own goroutine.
func (hc *Checker) Start(ctx context.Context) {
	hc.Check(ctx)
	if hc.checkInterval <= 0 {
		return
	}

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hc.Check(ctx)
		case <-hc.stopChan:
			hc.logger.Info("health checker stopped")
			return
		case <-ctx.Done():
			hc.logger.Info("health checker context cancelled")
			return
		}
	}
}

// Check runs every probe concurrently and returns the updated report.
func (hc *Checker) Check(ctx context.Context) Report {
	hc.mu.RLock()
	probes := append([]probe(nil), hc.probes...)
	hc.mu.RUnlock()

	var wg sync.WaitGroup
	for _, p := range probes {
		wg.Add(1)
		go func(p probe) {
			defer wg.Done()
			hc.performCheck(ctx, p)
		}(p)
	}
	wg.Wait()

	return hc.Report()
}

func (hc *Checker) performCheck(ctx context.Context, p probe) {
	checkCtx, cancel := context.WithTimeout(ctx, hc.probeTimeout)
	defer cancel()

	err := p.fn(checkCtx)

	hc.mu.Lock()
	defer hc.mu.Unlock()

	st := hc.status[p.name]
	st.LastCheckTime = time.Now()

	if err == nil {
		if !st.IsHealthy {
			hc.logger.Info("dependency recovered", "service", p.name)
		}
		st.IsHealthy = true
		st.ConsecutiveFails = 0
		st.ErrorMessage = ""
		return
	}

	st.ConsecutiveFails++
	st.ErrorMessage = fmt.Sprintf("health check failed: %v", err)
	if st.ConsecutiveFails >= hc.failThreshold {
		st.IsHealthy = false
		hc.logger.Error("dependency unhealthy",
			"service", p.name,
			"consecutive_fails", st.ConsecutiveFails,
			"error", err,
		)
	} else {
		hc.logger.Warn("health check failed",
			"service", p.name,
			"attempt", st.ConsecutiveFails,
			"threshold", hc.failThreshold,
			"error", err,
		)
	}
}

// Report returns a copy of the current statuses sorted by name.
func (hc *Checker) Report() Report {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	report := Report{Ready: true, Services: make([]ServiceStatus, 0, len(hc.status))}
	for _, st := range hc.status {
		report.Services = append(report.Services, *st)
		if st.Critical && !st.IsHealthy {
			report.Ready = false
		}
	}
	sort.Slice(report.Services, func(i, j int) bool {
		return report.Services[i].Name < report.Services[j].Name
	})
	return report
}

// Stop terminates Start. Safe to call more than once.
func (hc *Checker) Stop() {
	hc.stopOnce.Do(func() { close(hc.stopChan) })
}

// BoolProbe adapts a (healthy, err) style check, such as a transcriber's
// HealthCheck, into a ProbeFunc.
func BoolProbe(check func(ctx context.Context) (bool, error)) ProbeFunc {
	return func(ctx context.Context) error {
		ok, err := check(ctx)
		switch {
		case err != nil:
			return err
		case !ok:
			return fmt.Errorf("reported unhealthy")
		default:
			return nil
		}
	}
}
