package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"crm-pipeline-api/internal/client"
	"crm-pipeline-api/internal/config"
	"crm-pipeline-api/internal/database"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/repository"
)

// Store is the record store selected by store.driver
type Store struct {
	Driver    string
	Stages    repository.StageRepository
	Customers repository.CustomerRepository
	// Exports is nil for stores without an export table
	Exports repository.ExportRepository
	// DB is set for the postgres driver only
	DB *gorm.DB

	statsDone chan struct{}
}

// OpenStore connects to the configured record store.
// The postgres driver keeps retrying until ctx is done.
func OpenStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory record store; data is lost on restart")
		return &Store{
			Driver:    cfg.Store.Driver,
			Stages:    repository.NewMemoryStageRepository(),
			Customers: repository.NewMemoryCustomerRepository(),
		}, nil

	case config.DriverPostgREST:
		rest := client.NewPostgRESTClient(cfg.PostgREST.URL, cfg.PostgREST.APIKey, cfg.PostgREST.Timeout, logger, m)
		logger.Info("Using PostgREST record store", zap.String("url", cfg.PostgREST.URL))
		return &Store{
			Driver:    cfg.Store.Driver,
			Stages:    repository.NewRESTStageRepository(rest),
			Customers: repository.NewRESTCustomerRepository(rest),
		}, nil

	case config.DriverPostgres:
		db, err := database.Connect(ctx, database.ConfigFrom(cfg.Database), 5*time.Second, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connected successfully")

		if err := database.RegisterMetricsCallbacks(db, m); err != nil {
			logger.Warn("Failed to register database metrics callbacks", zap.Error(err))
		}
		if cfg.Database.AutoMigrate {
			if err := database.AutoMigrateWithRetry(db, logger, 3); err != nil {
				database.Close(db)
				return nil, err
			}
			logger.Info("Database migrations completed")
		}

		return &Store{
			Driver:    cfg.Store.Driver,
			Stages:    repository.NewStageRepository(db),
			Customers: repository.NewCustomerRepository(db),
			Exports:   repository.NewExportRepository(db),
			DB:        db,
			statsDone: database.StartDBStatsCollector(db, m, 15*time.Second),
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Ping checks the store connection. Only the postgres driver holds one.
func (s *Store) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return database.Ping(ctx, s.DB)
}

// Close releases the database connection, if any
func (s *Store) Close() error {
	if s.statsDone != nil {
		close(s.statsDone)
		s.statsDone = nil
	}
	if s.DB == nil {
		return nil
	}
	return database.Close(s.DB)
}
