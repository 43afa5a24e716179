// internal/utils/metrics.go
package utils

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Histogram tracks count, sum, min and max of observed values.
type Histogram struct {
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*Histogram),
	}
}

// value returns the cell for name in table, creating it under the write lock
// on first use.
func (m *MetricsCollector) value(table map[string]*int64, name string) *int64 {
	m.mu.RLock()
	v, ok := table[name]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok = table[name]; !ok {
		v = new(int64)
		table[name] = v
	}
	return v
}

// IncrementCounter increments a counter by one
func (m *MetricsCollector) IncrementCounter(name string) {
	atomic.AddInt64(m.value(m.counters, name), 1)
}

// AddCounter adds delta to a counter
func (m *MetricsCollector) AddCounter(name string, delta int64) {
	atomic.AddInt64(m.value(m.counters, name), delta)
}

// SetGauge sets a gauge
func (m *MetricsCollector) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.value(m.gauges, name), value)
}

// IncGauge increments a gauge
func (m *MetricsCollector) IncGauge(name string) {
	atomic.AddInt64(m.value(m.gauges, name), 1)
}

// DecGauge decrements a gauge
func (m *MetricsCollector) DecGauge(name string) {
	atomic.AddInt64(m.value(m.gauges, name), -1)
}

// GetGauge returns the current gauge value
func (m *MetricsCollector) GetGauge(name string) int64 {
	return atomic.LoadInt64(m.value(m.gauges, name))
}

// GetCounterValue returns the current counter value
func (m *MetricsCollector) GetCounterValue(name string) int64 {
	return atomic.LoadInt64(m.value(m.counters, name))
}

// RecordHistogram records one observation
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if h, ok = m.histograms[name]; !ok {
			h = &Histogram{}
			m.histograms[name] = h
		}
		m.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 || value < h.min {
		h.min = value
	}
	if h.count == 0 || value > h.max {
		h.max = value
	}
	h.count++
	h.sum += value
}

// GetMetrics returns a snapshot of every metric
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, v := range m.counters {
		counters[name] = atomic.LoadInt64(v)
	}
	gauges := make(map[string]int64, len(m.gauges))
	for name, v := range m.gauges {
		gauges[name] = atomic.LoadInt64(v)
	}
	histograms := make(map[string]interface{}, len(m.histograms))
	for name, h := range m.histograms {
		h.mu.Lock()
		avg := float64(0)
		if h.count > 0 {
			avg = float64(h.sum) / float64(h.count)
		}
		histograms[name] = map[string]interface{}{
			"count": h.count,
			"sum":   h.sum,
			"min":   h.min,
			"max":   h.max,
			"avg":   avg,
		}
		h.mu.Unlock()
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
		"timestamp":  time.Now().UTC(),
	}
}

// APIMetrics records request and novel lifecycle metrics.
type APIMetrics struct {
	collector *MetricsCollector
}

// NewAPIMetrics wraps collector; a nil collector gets a fresh one.
func NewAPIMetrics(collector *MetricsCollector) *APIMetrics {
	if collector == nil {
		collector = NewMetricsCollector()
	}
	return &APIMetrics{collector: collector}
}

// Collector returns the underlying collector
func (am *APIMetrics) Collector() *MetricsCollector { return am.collector }

// RecordAPIRequest records one HTTP request
func (am *APIMetrics) RecordAPIRequest(endpoint, method string, statusCode int, duration time.Duration) {
	am.collector.IncrementCounter("api_requests_total")
	am.collector.IncrementCounter(fmt.Sprintf("api_requests_%s_%s", method, endpoint))
	am.collector.IncrementCounter(fmt.Sprintf("api_status_%d", statusCode))
	if statusCode >= 500 {
		am.collector.IncrementCounter("api_errors_total")
	}
	am.collector.RecordHistogram("api_request_duration_ms", duration.Milliseconds())
}

// RecordNovelEvent counts a novel lifecycle event such as novel_saved
func (am *APIMetrics) RecordNovelEvent(eventType string) {
	am.collector.IncrementCounter("novel_events_" + eventType)
}

// RecordError counts an error by type and component
func (am *APIMetrics) RecordError(errorType, component string) {
	am.collector.IncrementCounter("errors_total")
	am.collector.IncrementCounter(fmt.Sprintf("errors_%s_%s", component, errorType))
}
