package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestIncrementStageCreated(t *testing.T) {
	m := getTestMetrics()

	initialValue := getCounterValue(t, m.StageCreatedTotal)
	m.IncrementStageCreated()

	newValue := getCounterValue(t, m.StageCreatedTotal)
	if newValue != initialValue+1 {
		t.Errorf("Expected counter to increment by one, got %f -> %f", initialValue, newValue)
	}
}

func TestIncrementCustomerMoved(t *testing.T) {
	m := getTestMetrics()

	m.IncrementCustomerMoved()
	m.IncrementCustomerMoved()

	if value := getCounterValue(t, m.CustomerMovesTotal); value != 2 {
		t.Errorf("Expected 2 moves, got %f", value)
	}
}

func TestRecordReorder(t *testing.T) {
	m := getTestMetrics()

	m.RecordReorder(ReorderOutcomeCommitted)
	m.RecordReorder(ReorderOutcomePartial)
	m.RecordReorder(ReorderOutcomePartial)

	if value := getCounterValue(t, m.ReorderTotal.WithLabelValues(ReorderOutcomeCommitted)); value != 1 {
		t.Errorf("Expected 1 committed reorder, got %f", value)
	}
	if value := getCounterValue(t, m.ReorderTotal.WithLabelValues(ReorderOutcomePartial)); value != 2 {
		t.Errorf("Expected 2 partial reorders, got %f", value)
	}
}

func TestSetPipelineSnapshot(t *testing.T) {
	m := getTestMetrics()

	tests := []struct {
		name     string
		snapshot PipelineSnapshot
	}{
		{"empty pipeline", PipelineSnapshot{}},
		{"default stages", PipelineSnapshot{Stages: 3, Customers: 10, TotalValue: 1250.5}},
		{"with dangling references", PipelineSnapshot{Stages: 2, Customers: 4, DanglingCustomers: 1, PositionGaps: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.SetPipelineSnapshot(tt.snapshot)

			if v := getGaugeValue(t, m.StagesTotal); v != float64(tt.snapshot.Stages) {
				t.Errorf("Expected stages %d, got %f", tt.snapshot.Stages, v)
			}
			if v := getGaugeValue(t, m.CustomersTotal); v != float64(tt.snapshot.Customers) {
				t.Errorf("Expected customers %d, got %f", tt.snapshot.Customers, v)
			}
			if v := getGaugeValue(t, m.DanglingCustomersTotal); v != float64(tt.snapshot.DanglingCustomers) {
				t.Errorf("Expected dangling %d, got %f", tt.snapshot.DanglingCustomers, v)
			}
			if v := getGaugeValue(t, m.PositionGapsTotal); v != float64(tt.snapshot.PositionGaps) {
				t.Errorf("Expected gaps %d, got %f", tt.snapshot.PositionGaps, v)
			}
			if v := getGaugeValue(t, m.PipelineValue); v != tt.snapshot.TotalValue {
				t.Errorf("Expected value %f, got %f", tt.snapshot.TotalValue, v)
			}
		})
	}
}

func TestRecordEventPublished(t *testing.T) {
	m := getTestMetrics()

	m.RecordEventPublished("rabbitmq", nil)
	m.RecordEventPublished("webhook", errTest)

	if v := getCounterValue(t, m.EventsPublishedTotal.WithLabelValues("rabbitmq", "ok")); v != 1 {
		t.Errorf("Expected 1 ok rabbitmq event, got %f", v)
	}
	if v := getCounterValue(t, m.EventsPublishedTotal.WithLabelValues("webhook", "error")); v != 1 {
		t.Errorf("Expected 1 failed webhook event, got %f", v)
	}
}

// Helper function to get counter value
func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("Failed to write counter metric: %v", err)
	}
	return metric.Counter.GetValue()
}

// Helper function to get gauge value
func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := gauge.Write(metric); err != nil {
		t.Fatalf("Failed to write gauge metric: %v", err)
	}
	return metric.Gauge.GetValue()
}
