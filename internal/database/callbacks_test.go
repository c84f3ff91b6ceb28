package database

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"crm-pipeline-api/internal/domain"
)

// mockMetricsRecorder is a mock implementation of MetricsRecorder for testing
type mockMetricsRecorder struct {
	mu      sync.Mutex
	queries []queryRecord
	dbStats []sql.DBStats
}

type queryRecord struct {
	operation string
	table     string
	duration  time.Duration
	err       error
}

func (m *mockMetricsRecorder) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, queryRecord{
		operation: operation,
		table:     table,
		duration:  duration,
		err:       err,
	})
}

func (m *mockMetricsRecorder) UpdateDBStats(stats interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dbStats, ok := stats.(sql.DBStats); ok {
		m.dbStats = append(m.dbStats, dbStats)
	}
}

func (m *mockMetricsRecorder) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = nil
}

func (m *mockMetricsRecorder) statsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dbStats)
}

// setupTestDB opens an in-memory SQLite database with the pipeline tables
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := open(sqlite.Open(":memory:"), Config{MaxOpenConns: 1})
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, AutoMigrate(db, zap.NewNop()))
	return db
}

func newStage(name string, position int) *domain.Stage {
	return &domain.Stage{
		BaseModel:      domain.BaseModel{ID: uuid.New()},
		Name:           name,
		Color:          "bg-blue-500",
		SecondaryColor: domain.SecondaryColorFor("bg-blue-500"),
		Position:       position,
	}
}

func TestAutoMigrate_CreatesPipelineTables(t *testing.T) {
	db := setupTestDB(t)

	assert.True(t, db.Migrator().HasTable(&domain.Stage{}))
	assert.True(t, db.Migrator().HasTable(&domain.Customer{}))
	assert.True(t, db.Migrator().HasColumn(&domain.Stage{}, "bg_color"))
	assert.True(t, db.Migrator().HasColumn(&domain.Customer{}, "last_contact"))

	// Running it again over existing tables is fine
	assert.NoError(t, AutoMigrateWithRetry(db, nil, 2))
}

func TestRegisterMetricsCallbacks_RecordsEachOperation(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}
	require.NoError(t, RegisterMetricsCallbacks(db, recorder))

	stage := newStage("Lead", 1)
	require.NoError(t, db.Create(stage).Error)

	var found domain.Stage
	require.NoError(t, db.First(&found, "id = ?", stage.ID).Error)
	require.NoError(t, db.Model(stage).Update("position", 2).Error)
	require.NoError(t, db.Delete(stage).Error)

	require.Len(t, recorder.queries, 4)
	for i, op := range []string{"insert", "select", "update", "delete"} {
		assert.Equal(t, op, recorder.queries[i].operation)
		assert.Equal(t, "pipeline_stages", recorder.queries[i].table)
		assert.Greater(t, recorder.queries[i].duration, time.Duration(0))
		assert.NoError(t, recorder.queries[i].err)
	}
}

func TestRegisterMetricsCallbacks_RecordsErrors(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}
	require.NoError(t, RegisterMetricsCallbacks(db, recorder))

	var missing domain.Stage
	err := db.First(&missing, "id = ?", uuid.New()).Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	require.Len(t, recorder.queries, 1)
	assert.Equal(t, "select", recorder.queries[0].operation)
	assert.Error(t, recorder.queries[0].err)

	stage := newStage("Lead", 1)
	require.NoError(t, db.Create(stage).Error)
	recorder.reset()

	duplicate := newStage("Again", 2)
	duplicate.ID = stage.ID
	err = db.Create(duplicate).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "driver errors are translated")
	require.Len(t, recorder.queries, 1)
	assert.Equal(t, "insert", recorder.queries[0].operation)
	assert.Error(t, recorder.queries[0].err)
}

func TestRegisterMetricsCallbacks_Transaction(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}
	require.NoError(t, RegisterMetricsCallbacks(db, recorder))

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(newStage("Lead", 1)).Error; err != nil {
			return err
		}
		return tx.Create(newStage("Won", 2)).Error
	})
	require.NoError(t, err)

	require.Len(t, recorder.queries, 2)
	for _, q := range recorder.queries {
		assert.Equal(t, "insert", q.operation)
	}
}

func TestStartDBStatsCollector(t *testing.T) {
	db := setupTestDB(t)
	recorder := &mockMetricsRecorder{}

	done := StartDBStatsCollector(db, recorder, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return recorder.statsCalls() > 0 }, time.Second, 10*time.Millisecond)
	close(done)
}
