package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *MetricsService, name string) float64 {
	t.Helper()
	families, err := m.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

func TestRecordCacheOperationCounts(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true)
	m.RecordCacheOperation(true)
	m.RecordCacheOperation(false)

	assert.Equal(t, 2.0, counterValue(t, m, "cache_hits_total"))
	assert.Equal(t, 1.0, counterValue(t, m, "cache_misses_total"))
}

func TestObserveHTTPRequestCounts(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest("GET", "/theses", 200, 12*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/theses", 200, 8*time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m, "http_requests_total"))
}

func TestNilMetricsServiceIsInert(t *testing.T) {
	var m *MetricsService

	m.RecordCacheOperation(true)
	m.RecordNotification()
	m.RecordReportJob("COMPLETED")
	m.ObserveHTTPRequest("GET", "/health", 200, time.Millisecond)

	assert.NotNil(t, m.Handler())
}
