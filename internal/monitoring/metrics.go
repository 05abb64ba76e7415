// Package monitoring records per-stage timings of a segmentation run.
package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// StageMetrics represents the cost of one pipeline stage.
type StageMetrics struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	Rows     int           `json:"rows"`
	// BytesAllocated is the cumulative heap allocation during the stage,
	// not the net growth of the live heap.
	BytesAllocated int64 `json:"bytes_allocated"`
	Failed         bool  `json:"failed"`
}

// MetricsCollector collects StageMetrics in the order stages ran.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []StageMetrics
	enabled bool
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics: make([]StageMetrics, 0),
		enabled: enabled,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// RecordStage executes fn and records its duration, bytes allocated and the
// row count reported by rows once fn returns. Failed stages are recorded too.
func (mc *MetricsCollector) RecordStage(stage string, rows func() int, fn func() error) error {
	if !mc.IsEnabled() {
		return fn()
	}

	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)
	start := time.Now()

	err := fn()

	duration := time.Since(start)
	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	m := StageMetrics{
		Stage:          stage,
		Duration:       duration,
		BytesAllocated: int64(memAfter.TotalAlloc - memBefore.TotalAlloc), //nolint:gosec // TotalAlloc is monotonic
		Failed:         err != nil,
	}
	if rows != nil {
		m.Rows = rows()
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, m)
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []StageMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]StageMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// GetSummary returns aggregate statistics over the recorded stages.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var summary MetricsSummary
	summary.TotalStages = len(mc.metrics)
	for _, m := range mc.metrics {
		summary.TotalDuration += m.Duration
		summary.TotalAllocated += m.BytesAllocated
		if m.Duration >= summary.SlowestDuration {
			summary.SlowestStage = m.Stage
			summary.SlowestDuration = m.Duration
		}
		if m.Failed {
			summary.FailedStage = m.Stage
		}
	}
	return summary
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalStages     int           `json:"total_stages"`
	TotalDuration   time.Duration `json:"total_duration"`
	TotalAllocated  int64         `json:"total_allocated"`
	SlowestStage    string        `json:"slowest_stage"`
	SlowestDuration time.Duration `json:"slowest_duration"`
	FailedStage     string        `json:"failed_stage,omitempty"`
}
