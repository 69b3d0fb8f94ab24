package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus encodes the outcome of a readiness probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string      `json:"component"`
	Status    ProbeStatus `json:"status"`
	Details   string      `json:"details,omitempty"`
	LatencyMS int64       `json:"latency_ms"`
}

// Report aggregates probe results. Ready is false when any probe is down;
// degraded dependencies are reported but keep the service in rotation.
type Report struct {
	Ready     bool          `json:"ready"`
	Status    ProbeStatus   `json:"status"`
	CheckedAt time.Time     `json:"checked_at"`
	Checks    []ProbeResult `json:"checks"`
}

// Probe checks one dependency. A nil error means up.
type Probe func(ctx context.Context) error

type check struct {
	name     string
	probe    Probe
	optional bool
}

// HealthManager runs registered readiness probes.
type HealthManager struct {
	mu      sync.RWMutex
	checks  []check
	timeout time.Duration
	now     func() time.Time
}

const defaultProbeTimeout = 2 * time.Second

func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HealthManager{timeout: timeout, now: time.Now}
}

// Register adds a probe whose failure marks the service not ready.
func (m *HealthManager) Register(name string, probe Probe) {
	m.add(check{name: name, probe: probe})
}

// RegisterOptional adds a probe whose failure only degrades the report.
func (m *HealthManager) RegisterOptional(name string, probe Probe) {
	m.add(check{name: name, probe: probe, optional: true})
}

func (m *HealthManager) add(c check) {
	if m == nil || c.name == "" || c.probe == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, c)
}

// Evaluate runs every probe in registration order.
func (m *HealthManager) Evaluate(ctx context.Context) Report {
	if ctx == nil {
		ctx = context.Background()
	}
	report := Report{Ready: true, Status: StatusUp, Checks: []ProbeResult{}}
	if m == nil {
		report.CheckedAt = time.Now().UTC()
		return report
	}
	report.CheckedAt = m.now().UTC()

	m.mu.RLock()
	checks := append([]check(nil), m.checks...)
	m.mu.RUnlock()

	for _, c := range checks {
		result := m.run(ctx, c)
		report.Checks = append(report.Checks, result)
		switch result.Status {
		case StatusDown:
			report.Ready = false
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func (m *HealthManager) run(ctx context.Context, c check) (result ProbeResult) {
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			result = classify(c, fmt.Errorf("panic: %v", rec))
		}
		result.Component = c.name
		result.LatencyMS = time.Since(start).Milliseconds()
	}()

	return classify(c, c.probe(probeCtx))
}

func classify(c check, err error) ProbeResult {
	if err == nil {
		return ProbeResult{Status: StatusUp}
	}
	status := StatusDown
	if c.optional {
		status = StatusDegraded
	}
	details := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		details = "timed out"
	}
	return ProbeResult{Status: status, Details: details}
}
