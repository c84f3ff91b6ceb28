package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/pipeline"
	"crm-pipeline-api/internal/service"
)

// Pipeline is the part of pipeline.Manager the reconcile job needs
type Pipeline interface {
	Refresh(ctx context.Context) error
	Stats() pipeline.Stats
}

// ReconcileJob reloads the stage and customer caches from the record store
// so that writes made by other replicas or directly in the store become
// visible, and reports drift (dangling customers, position gaps).
type ReconcileJob struct {
	pipeline Pipeline
	metrics  *metrics.Metrics
	timeout  time.Duration
	logger   *zap.Logger
}

// NewReconcileJob creates a new ReconcileJob instance
func NewReconcileJob(p Pipeline, m *metrics.Metrics, timeout time.Duration, logger *zap.Logger) *ReconcileJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileJob{
		pipeline: p,
		metrics:  m,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run executes one reconcile pass. It implements cron.Job.
func (j *ReconcileJob) Run() {
	if _, err := j.RunOnce(context.Background()); err != nil {
		j.logger.Error("Pipeline reconcile failed", zap.Error(err))
	}
}

// RunOnce refreshes the caches and returns the resulting stats.
// On failure the caches keep their previous contents and no gauges are updated.
func (j *ReconcileJob) RunOnce(ctx context.Context) (pipeline.Stats, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := j.pipeline.Refresh(ctx); err != nil {
		return pipeline.Stats{}, err
	}

	stats := j.pipeline.Stats()
	service.RecordSnapshot(j.metrics, stats)

	if stats.DanglingCustomers > 0 {
		j.logger.Warn("Customers reference deleted stages",
			zap.Int("dangling", stats.DanglingCustomers),
		)
	}
	if stats.PositionGaps > 0 {
		j.logger.Info("Stage positions are not contiguous",
			zap.Int("gaps", stats.PositionGaps),
		)
	}
	j.logger.Info("Pipeline reconcile completed",
		zap.Int("stages", stats.Stages),
		zap.Int("customers", stats.Customers),
		zap.Duration("duration", time.Since(start)),
	)
	return stats, nil
}

// NewScheduler registers job on a new cron scheduler. The caller starts and stops it.
func NewScheduler(schedule string, job cron.Job, logger *zap.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	if _, err := c.AddJob(schedule, job); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	return c, nil
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
