package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"crm-pipeline-api/internal/domain"
	"crm-pipeline-api/internal/repository"
)

// MockStageRepository counts store calls and delegates to Base unless a Func is set.
// It does not implement repository.PositionBatcher, so reorders run sequentially.
type MockStageRepository struct {
	Base repository.StageRepository

	FindAllFunc func(ctx context.Context) ([]*domain.Stage, error)
	CreateFunc  func(ctx context.Context, stage *domain.Stage) error
	UpdateFunc  func(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Stage, error)
	DeleteFunc  func(ctx context.Context, id uuid.UUID) error

	mu      sync.Mutex
	calls   int
	updates int
}

func newMockStageRepository() *MockStageRepository {
	return &MockStageRepository{Base: repository.NewMemoryStageRepository()}
}

func (m *MockStageRepository) record(update bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if update {
		m.updates++
	}
	return m.updates
}

// Calls returns the number of store calls made so far
func (m *MockStageRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Updates returns the number of Update calls made so far
func (m *MockStageRepository) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func (m *MockStageRepository) FindAll(ctx context.Context) ([]*domain.Stage, error) {
	m.record(false)
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return m.Base.FindAll(ctx)
}

func (m *MockStageRepository) Create(ctx context.Context, stage *domain.Stage) error {
	m.record(false)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, stage)
	}
	return m.Base.Create(ctx, stage)
}

func (m *MockStageRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Stage, error) {
	m.record(true)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, fields)
	}
	return m.Base.Update(ctx, id, fields)
}

func (m *MockStageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.record(false)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return m.Base.Delete(ctx, id)
}

// MockCustomerRepository counts store calls and delegates to Base unless a Func is set
type MockCustomerRepository struct {
	Base repository.CustomerRepository

	FindAllFunc func(ctx context.Context) ([]*domain.Customer, error)
	CreateFunc  func(ctx context.Context, customer *domain.Customer) error
	UpdateFunc  func(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Customer, error)
	DeleteFunc  func(ctx context.Context, id uuid.UUID) error

	mu    sync.Mutex
	calls int
}

func newMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{Base: repository.NewMemoryCustomerRepository()}
}

func (m *MockCustomerRepository) record() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

// Calls returns the number of store calls made so far
func (m *MockCustomerRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockCustomerRepository) FindAll(ctx context.Context) ([]*domain.Customer, error) {
	m.record()
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return m.Base.FindAll(ctx)
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	m.record()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, customer)
	}
	return m.Base.Create(ctx, customer)
}

func (m *MockCustomerRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Customer, error) {
	m.record()
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, fields)
	}
	return m.Base.Update(ctx, id, fields)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.record()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return m.Base.Delete(ctx, id)
}

// testPipeline wires a manager over counting mocks backed by memory stores
type testPipeline struct {
	stageRepo    *MockStageRepository
	customerRepo *MockCustomerRepository
	stages       *Stages
	customers    *Customers
	manager      *Manager
}

func newTestPipeline() *testPipeline {
	stageRepo := newMockStageRepository()
	customerRepo := newMockCustomerRepository()
	stages := NewStages(stageRepo, nil)
	customers := NewCustomers(customerRepo, stages, nil)
	return &testPipeline{
		stageRepo:    stageRepo,
		customerRepo: customerRepo,
		stages:       stages,
		customers:    customers,
		manager:      NewManager(stages, customers, NewLocalLocker(), nil, Options{}),
	}
}
