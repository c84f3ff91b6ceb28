package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"crm-pipeline-api/internal/domain"
)

// MemoryStageRepository keeps stages in process memory.
// Used by the "memory" store driver for local runs and by tests.
type MemoryStageRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Stage
	now  func() time.Time
}

// NewMemoryStageRepository creates an empty in-memory stage store
func NewMemoryStageRepository() *MemoryStageRepository {
	return &MemoryStageRepository{
		rows: make(map[uuid.UUID]domain.Stage),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// FindAll returns all stages ordered by position
func (r *MemoryStageRepository) FindAll(ctx context.Context) ([]*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stages := make([]*domain.Stage, 0, len(r.rows))
	for _, row := range r.rows {
		s := row
		stages = append(stages, &s)
	}
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].Position != stages[j].Position {
			return stages[i].Position < stages[j].Position
		}
		return stages[i].CreatedAt.Before(stages[j].CreatedAt)
	})
	return stages, nil
}

// Create inserts a stage
func (r *MemoryStageRepository) Create(ctx context.Context, stage *domain.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stage.ID == uuid.Nil {
		stage.ID = uuid.New()
	}
	if _, exists := r.rows[stage.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrConstraint, stage.ID)
	}
	now := r.now()
	stage.CreatedAt = now
	stage.UpdatedAt = now
	r.rows[stage.ID] = *stage
	return nil
}

// Update applies a partial update and returns the stored row
func (r *MemoryStageRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := applyStageFields(&row, fields); err != nil {
		return nil, err
	}
	row.UpdatedAt = r.now()
	r.rows[id] = row
	return &row, nil
}

// Delete removes a stage
func (r *MemoryStageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

// UpdatePositions rewrites the given positions atomically
func (r *MemoryStageRepository) UpdatePositions(ctx context.Context, positions []StagePosition) ([]*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range positions {
		if _, ok := r.rows[p.ID]; !ok {
			return nil, ErrNotFound
		}
	}

	now := r.now()
	updated := make([]*domain.Stage, 0, len(positions))
	for _, p := range positions {
		row := r.rows[p.ID]
		row.Position = p.Position
		row.UpdatedAt = now
		r.rows[p.ID] = row
		s := row
		updated = append(updated, &s)
	}
	return updated, nil
}

// MemoryCustomerRepository keeps customers in process memory
type MemoryCustomerRepository struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]domain.Customer
	order []uuid.UUID
	now   func() time.Time
}

// NewMemoryCustomerRepository creates an empty in-memory customer store
func NewMemoryCustomerRepository() *MemoryCustomerRepository {
	return &MemoryCustomerRepository{
		rows: make(map[uuid.UUID]domain.Customer),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// FindAll returns customers in insertion order
func (r *MemoryCustomerRepository) FindAll(ctx context.Context) ([]*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	customers := make([]*domain.Customer, 0, len(r.order))
	for _, id := range r.order {
		c := r.rows[id]
		customers = append(customers, &c)
	}
	return customers, nil
}

// Create inserts a customer
func (r *MemoryCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if _, exists := r.rows[customer.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrConstraint, customer.ID)
	}
	now := r.now()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	if customer.LastContact.IsZero() {
		customer.LastContact = now.Truncate(24 * time.Hour)
	}
	r.rows[customer.ID] = *customer
	r.order = append(r.order, customer.ID)
	return nil
}

// Update applies a partial update and returns the stored row
func (r *MemoryCustomerRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := applyCustomerFields(&row, fields); err != nil {
		return nil, err
	}
	row.UpdatedAt = r.now()
	r.rows[id] = row
	return &row, nil
}

// Delete removes a customer
func (r *MemoryCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func applyStageFields(stage *domain.Stage, fields map[string]interface{}) error {
	for key, value := range fields {
		var ok bool
		switch key {
		case FieldName:
			stage.Name, ok = value.(string)
		case FieldColor:
			stage.Color, ok = value.(string)
		case FieldSecondaryColor:
			stage.SecondaryColor, ok = value.(string)
		case FieldPosition:
			stage.Position, ok = value.(int)
		default:
			return fmt.Errorf("%w: unknown stage field %q", ErrConstraint, key)
		}
		if !ok {
			return fmt.Errorf("%w: invalid value for stage field %q", ErrConstraint, key)
		}
	}
	return nil
}

func applyCustomerFields(customer *domain.Customer, fields map[string]interface{}) error {
	for key, value := range fields {
		ok := true
		switch key {
		case FieldName:
			customer.Name, ok = value.(string)
		case FieldEmail:
			customer.Email, ok = value.(string)
		case FieldPhone:
			customer.Phone, ok = value.(string)
		case FieldCompany:
			customer.Company, ok = value.(string)
		case FieldSource:
			customer.Source, ok = value.(string)
		case FieldValue:
			customer.Value, ok = value.(float64)
		case FieldLastContact:
			customer.LastContact, ok = value.(time.Time)
		case FieldCustomFields:
			customer.CustomFields, ok = value.(datatypes.JSON)
		case FieldStageID:
			switch v := value.(type) {
			case uuid.UUID:
				id := v
				customer.StageID = &id
			case *uuid.UUID:
				customer.StageID = v
			case nil:
				customer.StageID = nil
			default:
				ok = false
			}
		default:
			return fmt.Errorf("%w: unknown customer field %q", ErrConstraint, key)
		}
		if !ok {
			return fmt.Errorf("%w: invalid value for customer field %q", ErrConstraint, key)
		}
	}
	return nil
}
