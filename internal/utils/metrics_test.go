package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersAreConcurrent(t *testing.T) {
	m := NewMetricsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementCounter("hits")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.GetCounterValue("hits"))
}

func TestGaugesAndHistograms(t *testing.T) {
	m := NewMetricsCollector()
	m.IncGauge("ws")
	m.IncGauge("ws")
	m.DecGauge("ws")
	m.RecordHistogram("latency", 10)
	m.RecordHistogram("latency", 30)

	snapshot := m.GetMetrics()

	assert.Equal(t, int64(1), m.GetGauge("ws"))
	latency := snapshot["histograms"].(map[string]interface{})["latency"].(map[string]interface{})
	assert.Equal(t, int64(2), latency["count"])
	assert.Equal(t, int64(10), latency["min"])
	assert.Equal(t, int64(30), latency["max"])
	assert.Equal(t, 20.0, latency["avg"])
}

func TestAPIMetrics(t *testing.T) {
	am := NewAPIMetrics(nil)

	am.RecordAPIRequest("/api/novels", "GET", 200, 5*time.Millisecond)
	am.RecordAPIRequest("/api/novels", "GET", 503, time.Millisecond)
	am.RecordNovelEvent("novel_saved")

	c := am.Collector()
	assert.Equal(t, int64(2), c.GetCounterValue("api_requests_total"))
	assert.Equal(t, int64(1), c.GetCounterValue("api_errors_total"))
	assert.Equal(t, int64(1), c.GetCounterValue("novel_events_novel_saved"))
}
