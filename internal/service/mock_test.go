package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"crm-pipeline-api/internal/domain"
	"crm-pipeline-api/internal/events"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/pipeline"
	"crm-pipeline-api/internal/repository"
)

// MockPublisher records published events
type MockPublisher struct {
	PublishFunc func(ctx context.Context, e events.Event) error

	mu     sync.Mutex
	events []events.Event
}

func (m *MockPublisher) Publish(ctx context.Context, e events.Event) error {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, e)
	}
	return nil
}

// Types returns the types of the published events in order
func (m *MockPublisher) Types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

// MockStageRepository delegates to an in-memory store unless a Func is set.
// It is not a repository.PositionBatcher, so reorders run sequentially.
type MockStageRepository struct {
	Base *repository.MemoryStageRepository

	FindAllFunc func(ctx context.Context) ([]*domain.Stage, error)
	UpdateFunc  func(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Stage, error)
}

func (m *MockStageRepository) FindAll(ctx context.Context) ([]*domain.Stage, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return m.Base.FindAll(ctx)
}

func (m *MockStageRepository) Create(ctx context.Context, stage *domain.Stage) error {
	return m.Base.Create(ctx, stage)
}

func (m *MockStageRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Stage, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, fields)
	}
	return m.Base.Update(ctx, id, fields)
}

func (m *MockStageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Base.Delete(ctx, id)
}

// MockCustomerRepository delegates to an in-memory store unless a Func is set
type MockCustomerRepository struct {
	Base *repository.MemoryCustomerRepository

	FindAllFunc func(ctx context.Context) ([]*domain.Customer, error)
	UpdateFunc  func(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Customer, error)
	DeleteFunc  func(ctx context.Context, id uuid.UUID) error
}

func (m *MockCustomerRepository) FindAll(ctx context.Context) ([]*domain.Customer, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return m.Base.FindAll(ctx)
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return m.Base.Create(ctx, customer)
}

func (m *MockCustomerRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Customer, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, fields)
	}
	return m.Base.Update(ctx, id, fields)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return m.Base.Delete(ctx, id)
}

type testEnv struct {
	stageRepo    *MockStageRepository
	customerRepo *MockCustomerRepository
	manager      *pipeline.Manager
	publisher    *MockPublisher
	metrics      *metrics.Metrics
	registry     *prometheus.Registry

	stages    StageService
	customers CustomerService
	board     BoardService
}

func newTestEnv() *testEnv {
	stageRepo := &MockStageRepository{Base: repository.NewMemoryStageRepository()}
	customerRepo := &MockCustomerRepository{Base: repository.NewMemoryCustomerRepository()}
	stages := pipeline.NewStages(stageRepo, nil)
	manager := pipeline.NewManager(stages, pipeline.NewCustomers(customerRepo, stages, nil), nil, nil, pipeline.Options{})

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry, nil)
	publisher := &MockPublisher{}

	return &testEnv{
		stageRepo:    stageRepo,
		customerRepo: customerRepo,
		manager:      manager,
		publisher:    publisher,
		metrics:      m,
		registry:     registry,
		stages:       NewStageService(manager, publisher, 0, m, nil),
		customers:    NewCustomerService(manager, publisher, 0, m, nil),
		board:        NewBoardService(manager, 0, m, nil),
	}
}

// MockExportRepository keeps export records in memory
type MockExportRepository struct {
	CreateFunc func(ctx context.Context, export *domain.BoardExport) error

	records []*domain.BoardExport
}

func (m *MockExportRepository) Create(ctx context.Context, export *domain.BoardExport) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, export)
	}
	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}
	export.CreatedAt = time.Now()
	m.records = append(m.records, export)
	return nil
}

func (m *MockExportRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardExport, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockExportRepository) FindRecent(ctx context.Context, limit int) ([]*domain.BoardExport, error) {
	out := append([]*domain.BoardExport(nil), m.records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockExportRepository) FindExpired(ctx context.Context, now time.Time) ([]*domain.BoardExport, error) {
	var out []*domain.BoardExport
	for _, r := range m.records {
		if r.Expired(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockExportRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	return nil
}
