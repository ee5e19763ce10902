package database

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"sqlpanel/internal/logging"
)

// HealthChecker periodically probes the cached connectors and evicts the
// ones whose server stopped answering, so the next request reconnects.
type HealthChecker struct {
	manager *ConnectorManager
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHealthChecker creates a new HealthChecker instance
func NewHealthChecker(manager *ConnectorManager, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		manager: manager,
		timeout: timeout,
		logger:  logging.Component("connector-health"),
	}
}

// HealthCheckResult is the outcome of probing one connector.
type HealthCheckResult struct {
	Key       string        `json:"key"`
	Stats     PoolStats     `json:"stats"`
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// HealthSummary aggregates one sweep over the manager.
type HealthSummary struct {
	Total     int                 `json:"total"`
	Healthy   int                 `json:"healthy"`
	Evicted   int                 `json:"evicted"`
	Results   []HealthCheckResult `json:"results"`
	CheckedAt time.Time           `json:"checkedAt"`
}

// CheckAll probes every cached connector once. Unreachable connectors are
// closed and removed from the manager.
func (hc *HealthChecker) CheckAll(ctx context.Context) *HealthSummary {
	snapshot := hc.manager.snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	summary := &HealthSummary{
		Total:     len(keys),
		Results:   make([]HealthCheckResult, 0, len(keys)),
		CheckedAt: time.Now(),
	}

	for _, key := range keys {
		connector := snapshot[key]
		started := time.Now()

		probeCtx, cancel := context.WithTimeout(ctx, hc.timeout)
		healthy := connector.TestConnection(probeCtx)
		cancel()

		result := HealthCheckResult{
			Key:       key,
			Stats:     connector.Stats(),
			Healthy:   healthy,
			Latency:   time.Since(started),
			CheckedAt: started,
		}
		summary.Results = append(summary.Results, result)

		if healthy {
			summary.Healthy++
			continue
		}
		if hc.manager.evict(key, connector) {
			summary.Evicted++
			hc.logger.Warn().Str("key", key).Str("engine", string(connector.Kind())).Msg("evicted unreachable connector")
		}
	}
	return summary
}

// Run sweeps every interval until ctx is done, handing each summary to
// onSweep when it is non-nil.
func (hc *HealthChecker) Run(ctx context.Context, interval time.Duration, onSweep func(*HealthSummary)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary := hc.CheckAll(ctx)
			if onSweep != nil {
				onSweep(summary)
			}
		}
	}
}
