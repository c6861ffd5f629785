package monitoring

import (
	"context"
	"sync"
	"time"
)

// HealthChecker aggregates named readiness probes. Checks are run on demand
// by the readiness endpoint; a single failing check marks the whole service
// unready.
type HealthChecker struct {
	mu     sync.RWMutex
	checks []healthCheck
}

type healthCheck struct {
	name    string
	check   func(ctx context.Context) error
	timeout time.Duration
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, healthCheck{name: name, check: check, timeout: timeout})
}

func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	for _, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, check.timeout)
		err := check.check(checkCtx)
		cancel()

		if err != nil {
			status.Status = "unhealthy"
			status.Checks[check.name] = err.Error()
			continue
		}
		status.Checks[check.name] = "healthy"
	}

	return status
}
