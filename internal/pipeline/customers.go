package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"crm-pipeline-api/internal/domain"
	"crm-pipeline-api/internal/repository"
)

// StageRef is the read-only stage summary joined onto a customer
type StageRef struct {
	ID             uuid.UUID
	Name           string
	Color          string
	SecondaryColor string
}

// CustomerView is a customer joined with its current stage.
// Stage is nil when the customer has no stage or references a deleted one.
type CustomerView struct {
	domain.Customer
	Stage *StageRef
}

// Dangling reports whether the customer references a stage that no longer exists
func (v CustomerView) Dangling() bool {
	return v.StageID != nil && v.Stage == nil
}

// NewCustomer holds the fields of a customer to create
type NewCustomer struct {
	Name         string
	Email        string
	Phone        string
	Company      string
	Source       string
	StageID      *uuid.UUID
	Value        float64
	CustomFields datatypes.JSON
}

// CustomerPatch holds field edits; nil fields are left unchanged.
// Stage changes go through MoveToStage.
type CustomerPatch struct {
	Name         *string
	Email        *string
	Phone        *string
	Company      *string
	Source       *string
	Value        *float64
	CustomFields datatypes.JSON
}

func (p CustomerPatch) empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Company == nil &&
		p.Source == nil && p.Value == nil && p.CustomFields == nil
}

// Customers owns customer records and their stage assignment
type Customers struct {
	repo   repository.CustomerRepository
	stages *Stages
	logger *zap.Logger
	now    func() time.Time

	mu   sync.RWMutex
	list []domain.Customer
}

// NewCustomers creates an empty customer cache joined against stages
func NewCustomers(repo repository.CustomerRepository, stages *Stages, logger *zap.Logger) *Customers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Customers{
		repo:   repo,
		stages: stages,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the clock used for last-contact dates
func (c *Customers) SetClock(now func() time.Time) {
	c.now = now
}

// Load replaces the cached customers with the store's rows.
// On failure the previously cached list is kept.
func (c *Customers) Load(ctx context.Context) ([]CustomerView, error) {
	rows, err := c.repo.FindAll(ctx)
	if err != nil {
		c.logger.Warn("Failed to load customers, keeping cached list", zap.Error(err))
		return c.List(), storeError("load customers", err)
	}

	list := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		list = append(list, *row)
	}

	c.mu.Lock()
	c.list = list
	c.mu.Unlock()

	return c.List(), nil
}

// List returns every cached customer joined with its stage
func (c *Customers) List() []CustomerView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	views := make([]CustomerView, len(c.list))
	for i, cu := range c.list {
		views[i] = c.view(cu)
	}
	return views
}

// Get returns the cached customer with id
func (c *Customers) Get(id uuid.UUID) (CustomerView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexOf(id); i >= 0 {
		return c.view(c.list[i]), true
	}
	return CustomerView{}, false
}

// ReferencingStage returns the customers whose stage is stageID
func (c *Customers) ReferencingStage(stageID uuid.UUID) []domain.Customer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Customer
	for _, cu := range c.list {
		if cu.InStage(stageID) {
			out = append(out, cu)
		}
	}
	return out
}

// Create inserts a customer. A missing stage defaults to the first stage.
func (c *Customers) Create(ctx context.Context, fields NewCustomer) (CustomerView, error) {
	if blank(fields.Name) {
		return CustomerView{}, validationError("customer name is required")
	}
	if blank(fields.Email) {
		return CustomerView{}, validationError("customer email is required")
	}
	if err := validateValue(fields.Value); err != nil {
		return CustomerView{}, err
	}

	stageID := fields.StageID
	if stageID == nil {
		if first, ok := c.stages.First(); ok {
			id := first.ID
			stageID = &id
		}
	} else if !c.stages.Exists(*stageID) {
		return CustomerView{}, ErrInvalidTarget
	}

	customer := &domain.Customer{
		Name:         fields.Name,
		Email:        fields.Email,
		Phone:        fields.Phone,
		Company:      fields.Company,
		Source:       fields.Source,
		StageID:      stageID,
		Value:        fields.Value,
		LastContact:  c.today(),
		CustomFields: fields.CustomFields,
	}
	if err := c.repo.Create(ctx, customer); err != nil {
		return CustomerView{}, storeError("create customer", err)
	}

	c.mu.Lock()
	c.list = append(c.list, *customer)
	c.mu.Unlock()

	return c.viewOf(*customer), nil
}

// Update applies field edits to a customer
func (c *Customers) Update(ctx context.Context, id uuid.UUID, patch CustomerPatch) (CustomerView, error) {
	current, ok := c.Get(id)
	if !ok {
		return CustomerView{}, ErrNotFound
	}
	if patch.empty() {
		return current, nil
	}

	fields := make(map[string]interface{})
	if patch.Name != nil {
		if blank(*patch.Name) {
			return CustomerView{}, validationError("customer name is required")
		}
		fields[repository.FieldName] = *patch.Name
	}
	if patch.Email != nil {
		if blank(*patch.Email) {
			return CustomerView{}, validationError("customer email is required")
		}
		fields[repository.FieldEmail] = *patch.Email
	}
	if patch.Phone != nil {
		fields[repository.FieldPhone] = *patch.Phone
	}
	if patch.Company != nil {
		fields[repository.FieldCompany] = *patch.Company
	}
	if patch.Source != nil {
		fields[repository.FieldSource] = *patch.Source
	}
	if patch.Value != nil {
		if err := validateValue(*patch.Value); err != nil {
			return CustomerView{}, err
		}
		fields[repository.FieldValue] = *patch.Value
	}
	if patch.CustomFields != nil {
		fields[repository.FieldCustomFields] = patch.CustomFields
	}

	updated, err := c.repo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.forget(id)
		}
		return CustomerView{}, storeError("update customer", err)
	}

	c.replace(*updated)
	return c.viewOf(*updated), nil
}

// MoveToStage assigns the customer to newStageID and stamps today's date as
// the last contact. Moving to the current stage is a no-op and reports false.
func (c *Customers) MoveToStage(ctx context.Context, id, newStageID uuid.UUID) (CustomerView, bool, error) {
	current, ok := c.Get(id)
	if !ok {
		return CustomerView{}, false, ErrNotFound
	}
	if current.InStage(newStageID) {
		return current, false, nil
	}

	// Captured once so a retried call writes the same date
	today := c.today()

	updated, err := c.repo.Update(ctx, id, map[string]interface{}{
		repository.FieldStageID:     newStageID,
		repository.FieldLastContact: today,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.forget(id)
		}
		return current, false, storeError("move customer", err)
	}

	c.replace(*updated)
	return c.viewOf(*updated), true, nil
}

// Delete removes a customer; confirmed must be true
func (c *Customers) Delete(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if _, ok := c.Get(id); !ok {
		return ErrNotFound
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.forget(id)
		}
		return storeError("delete customer", err)
	}

	c.forget(id)
	return nil
}

func (c *Customers) today() time.Time {
	now := c.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (c *Customers) viewOf(cu domain.Customer) CustomerView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view(cu)
}

// view joins a customer with the stage cache
func (c *Customers) view(cu domain.Customer) CustomerView {
	v := CustomerView{Customer: cu}
	if cu.StageID == nil {
		return v
	}
	if st, ok := c.stages.Get(*cu.StageID); ok {
		v.Stage = &StageRef{
			ID:             st.ID,
			Name:           st.Name,
			Color:          st.Color,
			SecondaryColor: st.SecondaryColor,
		}
	}
	return v
}

func (c *Customers) replace(cu domain.Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(cu.ID); i >= 0 {
		c.list[i] = cu
		return
	}
	c.list = append(c.list, cu)
}

func (c *Customers) forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		c.list = append(c.list[:i], c.list[i+1:]...)
	}
}

// indexOf must be called with mu held
func (c *Customers) indexOf(id uuid.UUID) int {
	for i := range c.list {
		if c.list[i].ID == id {
			return i
		}
	}
	return -1
}

func validateValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return validationError("customer value must be a finite number")
	}
	if v < 0 {
		return validationError("customer value must not be negative")
	}
	return nil
}
