package metrics

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var errTest = errors.New("test error")

// TestMetricCollectionErrorHandling checks that no recording operation panics
func TestMetricCollectionErrorHandling(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	tests := []struct {
		name      string
		operation func(*Metrics)
	}{
		{"RecordHTTPRequest", func(m *Metrics) { m.RecordHTTPRequest("GET", "/test", 200, time.Second) }},
		{"RecordDBQuery", func(m *Metrics) { m.RecordDBQuery("select", "pipeline_stages", time.Millisecond, nil) }},
		{"RecordExternalAPICall", func(m *Metrics) { m.RecordExternalAPICall("/rest/v1/customers", "GET", 200, time.Second, nil) }},
		{"IncrementStageCreated", func(m *Metrics) { m.IncrementStageCreated() }},
		{"IncrementStageDeleted", func(m *Metrics) { m.IncrementStageDeleted() }},
		{"IncrementCustomerCreated", func(m *Metrics) { m.IncrementCustomerCreated() }},
		{"RecordReorder", func(m *Metrics) { m.RecordReorder(ReorderOutcomeFailed) }},
		{"SetPipelineSnapshot", func(m *Metrics) { m.SetPipelineSnapshot(PipelineSnapshot{Stages: 3}) }},
		{"UpdateDBStats", func(m *Metrics) {
			m.UpdateDBStats(sql.DBStats{OpenConnections: 10, InUse: 5, Idle: 5})
		}},
		{"UpdateDBStats with wrong type", func(m *Metrics) { m.UpdateDBStats("not stats") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := prometheus.NewRegistry()
			m := NewWithRegistry(registry, logger)

			assert.NotPanics(t, func() {
				tt.operation(m)
			}, "Metric operation should not panic")
		})
	}
}

func TestMetricCollectionContinuesAfterError(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry, zap.NewNop())

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/api/pipeline/board", 200, time.Millisecond*100)
		m.RecordHTTPRequest("PUT", "/api/pipeline/stages/order", 409, time.Millisecond*150)
		m.RecordDBQuery("update", "pipeline_stages", time.Millisecond*20, errTest)
		m.RecordExternalAPICall("/rest/v1/pipeline_stages?id=eq.123", "PATCH", 503, time.Millisecond*50, nil)
		m.RecordEventPublished("websocket", errTest)
	})
}

func TestSafeExecuteWithPanic(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry, zap.NewNop())

	assert.NotPanics(t, func() {
		m.safeExecute("test_panic", func() {
			panic("intentional panic for testing")
		})
	}, "safeExecute should catch panics")
}

func TestMetricsWithNilLogger(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry, nil)

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/test", 200, time.Second)
		m.IncrementCustomerMoved()
	})
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		status int
		err    error
		want   string
	}{
		{404, nil, "not_found"},
		{409, nil, "client_error"},
		{503, nil, "service_unavailable"},
		{0, errors.New("dial tcp: connection refused"), "connection_refused"},
		{0, errors.New("context deadline exceeded"), "timeout"},
		{0, errors.New("boom"), "network_error"},
		{200, nil, "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, getErrorType(tt.status, tt.err))
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/rest/v1/customers",
		normalizeEndpoint("/rest/v1/customers?id=eq.123e4567-e89b-12d3-a456-426614174000"))
	assert.Equal(t, "/hooks/{id}/deliver",
		normalizeEndpoint("/hooks/123e4567-e89b-12d3-a456-426614174000/deliver"))
}
