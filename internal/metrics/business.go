package metrics

// Reorder outcomes
const (
	ReorderOutcomeCommitted = "committed"
	ReorderOutcomeNoop      = "noop"
	ReorderOutcomePartial   = "partial"
	ReorderOutcomeFailed    = "failed"
)

// IncrementStageCreated increments stage creation counter
func (m *Metrics) IncrementStageCreated() {
	m.safeExecute("IncrementStageCreated", func() {
		m.StageCreatedTotal.Inc()
	})
}

// IncrementStageDeleted increments stage deletion counter
func (m *Metrics) IncrementStageDeleted() {
	m.safeExecute("IncrementStageDeleted", func() {
		m.StageDeletedTotal.Inc()
	})
}

// IncrementCustomerCreated increments customer creation counter
func (m *Metrics) IncrementCustomerCreated() {
	m.safeExecute("IncrementCustomerCreated", func() {
		m.CustomerCreatedTotal.Inc()
	})
}

// IncrementCustomerMoved increments the stage transition counter
func (m *Metrics) IncrementCustomerMoved() {
	m.safeExecute("IncrementCustomerMoved", func() {
		m.CustomerMovesTotal.Inc()
	})
}

// RecordReorder records the outcome of a stage reorder
func (m *Metrics) RecordReorder(outcome string) {
	m.safeExecute("RecordReorder", func() {
		m.ReorderTotal.WithLabelValues(outcome).Inc()
	})
}

// RecordEventPublished records an event delivery attempt to a sink
func (m *Metrics) RecordEventPublished(sink string, err error) {
	m.safeExecute("RecordEventPublished", func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.EventsPublishedTotal.WithLabelValues(sink, outcome).Inc()
	})
}

// PipelineSnapshot is the set of gauges refreshed by the reconcile job
type PipelineSnapshot struct {
	Stages            int
	Customers         int
	DanglingCustomers int
	PositionGaps      int
	TotalValue        float64
}

// SetPipelineSnapshot updates all pipeline gauges at once
func (m *Metrics) SetPipelineSnapshot(s PipelineSnapshot) {
	m.safeExecute("SetPipelineSnapshot", func() {
		m.StagesTotal.Set(float64(s.Stages))
		m.CustomersTotal.Set(float64(s.Customers))
		m.DanglingCustomersTotal.Set(float64(s.DanglingCustomers))
		m.PositionGapsTotal.Set(float64(s.PositionGaps))
		m.PipelineValue.Set(s.TotalValue)
	})
}
