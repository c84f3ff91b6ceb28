// Package app wires the pipeline core to its stores, lock, event sinks and
// background jobs. Both the API server and pipelinectl are built on it.
package app

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/client"
	"crm-pipeline-api/internal/config"
	"crm-pipeline-api/internal/database"
	"crm-pipeline-api/internal/handler"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/pipeline"
	"crm-pipeline-api/internal/service"
)

// App holds the long-lived components of one process
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Store   *Store
	Redis   *redis.Client
	Manager *pipeline.Manager
	// S3 is nil when export storage is not configured
	S3     client.S3ClientInterface
	Events *Events

	StageService    service.StageService
	CustomerService service.CustomerService
	BoardService    service.BoardService
	ExportService   service.ExportService
}

// New connects the record store, builds the pipeline manager and loads its caches.
// A failed initial load is logged, not fatal: the caches stay empty until the
// next reconcile.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewWithLogger(logger)
	}

	a := &App{Config: cfg, Logger: logger, Metrics: m}

	store, err := OpenStore(ctx, cfg, m, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	lockers := []pipeline.Locker{pipeline.NewLocalLocker()}
	opts := pipeline.Options{}
	if cfg.Redis.Enabled() {
		rdb, err := database.NewRedis(cfg.Redis, logger)
		if err != nil {
			// Without the shared lock replicas could interleave reorders
			a.Close()
			return nil, err
		}
		a.Redis = rdb
		lockers = append(lockers, pipeline.NewRedisLocker(rdb, cfg.Redis.LockKey, cfg.Redis.LockTTL, logger.Named("lock")))
		opts.ReloadStagesOnLock = true
		opts.LockLease = cfg.Redis.LockTTL
	}

	stages := pipeline.NewStages(store.Stages, logger.Named("stages"))
	customers := pipeline.NewCustomers(store.Customers, stages, logger.Named("customers"))
	a.Manager = pipeline.NewManager(stages, customers, pipeline.Chain(lockers...), logger.Named("pipeline"), opts)

	if cfg.S3.Enabled() {
		s3Client, err := client.NewS3Client(&cfg.S3)
		if err != nil {
			logger.Warn("Failed to initialize S3 client, board exports disabled", zap.Error(err))
		} else {
			a.S3 = s3Client
			logger.Info("S3 client initialized",
				zap.String("bucket", cfg.S3.Bucket),
				zap.String("region", cfg.S3.Region),
			)
		}
	}

	a.Events, err = NewEvents(cfg, m, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.StageService = service.NewStageService(a.Manager, a.Events.Publisher, cfg.Store.Timeout, m, logger)
	a.CustomerService = service.NewCustomerService(a.Manager, a.Events.Publisher, cfg.Store.Timeout, m, logger)
	a.BoardService = service.NewBoardService(a.Manager, cfg.Store.Timeout, m, logger)
	a.ExportService = service.NewExportService(a.Manager, a.S3, store.Exports, service.ExportConfig{
		PresignTTL: cfg.S3.PresignTTL,
		Retention:  cfg.S3.Retention,
	}, logger)

	if err := a.Manager.Refresh(ctx); err != nil {
		logger.Warn("Initial pipeline load failed, starting with empty caches", zap.Error(err))
	} else if cfg.Store.SeedDefaults {
		if _, err := a.Manager.SeedDefaults(ctx); err != nil {
			logger.Warn("Failed to seed default stages", zap.Error(err))
		}
	}
	service.RecordSnapshot(m, a.Manager.Stats())

	return a, nil
}

// Checks returns the readiness checks of the connected dependencies
func (a *App) Checks() map[string]handler.Check {
	checks := map[string]handler.Check{}
	if a.Store.DB != nil {
		checks["database"] = a.Store.Ping
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	if a.Events.Rabbit != nil {
		checks["rabbitmq"] = func(ctx context.Context) error {
			if a.Events.Rabbit.Conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

// Close releases every connection held by the app
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
