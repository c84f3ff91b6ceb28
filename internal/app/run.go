package app

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crm-pipeline-api/internal/job"
)

// Run starts the background work of the server: event delivery, the
// reconcile schedule and, with export records, the export cleanup schedule.
// It blocks until ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	scheduler, err := job.NewScheduler(a.Config.Reconcile.Schedule,
		job.NewReconcileJob(a.Manager, a.Metrics, a.Config.Store.Timeout, a.Logger.Named("reconcile")),
		a.Logger)
	if err != nil {
		return err
	}
	if a.Store.Exports != nil && a.S3 != nil && a.Config.Reconcile.ExportCleanupSchedule != "" {
		cleanup := job.NewExportCleanupJob(a.Store.Exports, a.S3, a.Logger.Named("export_cleanup"))
		if _, err := scheduler.AddJob(a.Config.Reconcile.ExportCleanupSchedule, cleanup); err != nil {
			return err
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Events.Run(gCtx)
	})
	g.Go(func() error {
		scheduler.Start()
		a.Logger.Info("Background jobs scheduled",
			zap.String("reconcile", a.Config.Reconcile.Schedule),
			zap.Int("entries", len(scheduler.Entries())),
		)
		<-gCtx.Done()
		// Wait for a running job to finish
		<-scheduler.Stop().Done()
		return nil
	})
	return g.Wait()
}
