package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/events"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/pipeline"
)

// CustomerService defines the interface for customer business logic
type CustomerService interface {
	ListCustomers(ctx context.Context, filters *dto.BoardFilters) ([]dto.CustomerResponse, error)
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*dto.CustomerResponse, error)
	CreateCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (*dto.CustomerResponse, error)
	UpdateCustomer(ctx context.Context, customerID uuid.UUID, req *dto.UpdateCustomerRequest) (*dto.CustomerResponse, error)
	MoveCustomer(ctx context.Context, customerID uuid.UUID, req *dto.MoveCustomerRequest) (*dto.MoveCustomerResponse, error)
	DeleteCustomer(ctx context.Context, customerID uuid.UUID, confirmed bool) error
}

// customerServiceImpl is the implementation of CustomerService
type customerServiceImpl struct {
	manager *pipeline.Manager
	events  eventPublisher
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCustomerService creates a new instance of CustomerService
func NewCustomerService(
	manager *pipeline.Manager,
	publisher events.Publisher,
	timeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &customerServiceImpl{
		manager: manager,
		events:  newEventPublisher(publisher, logger),
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// ListCustomers returns the customers matching filters
func (s *customerServiceImpl) ListCustomers(ctx context.Context, filters *dto.BoardFilters) ([]dto.CustomerResponse, error) {
	filter := toBoardFilter(filters)
	out := make([]dto.CustomerResponse, 0)
	for _, v := range s.manager.Customers().List() {
		if filter.Matches(v) {
			out = append(out, toCustomerResponse(v))
		}
	}
	return out, nil
}

// GetCustomer returns one customer
func (s *customerServiceImpl) GetCustomer(ctx context.Context, customerID uuid.UUID) (*dto.CustomerResponse, error) {
	v, ok := s.manager.Customers().Get(customerID)
	if !ok {
		return nil, toAppError(pipeline.ErrNotFound, "Customer")
	}
	resp := toCustomerResponse(v)
	return &resp, nil
}

// CreateCustomer creates a customer in the requested or first stage
func (s *customerServiceImpl) CreateCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	fields, err := customFieldsJSON(req.CustomFields)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.manager.CreateCustomer(ctx, pipeline.NewCustomer{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Company:      req.Company,
		Source:       req.Source,
		StageID:      req.StageID,
		Value:        req.Value,
		CustomFields: fields,
	})
	if err != nil {
		return nil, toAppError(err, "Customer")
	}

	s.metrics.IncrementCustomerCreated()
	resp := toCustomerResponse(v)
	s.events.emit(ctx, events.CustomerCreated, resp)
	return &resp, nil
}

// UpdateCustomer edits customer fields
func (s *customerServiceImpl) UpdateCustomer(ctx context.Context, customerID uuid.UUID, req *dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	fields, err := customFieldsJSON(req.CustomFields)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.manager.UpdateCustomer(ctx, customerID, pipeline.CustomerPatch{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Company:      req.Company,
		Source:       req.Source,
		Value:        req.Value,
		CustomFields: fields,
	})
	if err != nil {
		return nil, toAppError(err, "Customer")
	}

	resp := toCustomerResponse(v)
	s.events.emit(ctx, events.CustomerUpdated, resp)
	return &resp, nil
}

// MoveCustomer moves a customer to another stage
func (s *customerServiceImpl) MoveCustomer(ctx context.Context, customerID uuid.UUID, req *dto.MoveCustomerRequest) (*dto.MoveCustomerResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.manager.MoveCustomer(ctx, customerID, req.FromStageID, req.ToStageID)
	if err != nil {
		return nil, toAppError(err, "Customer")
	}

	resp := &dto.MoveCustomerResponse{
		Customer:    toCustomerResponse(result.Customer),
		FromStageID: result.FromStageID,
		Moved:       result.Moved,
	}
	if result.Moved {
		s.metrics.IncrementCustomerMoved()
		s.events.emit(ctx, events.CustomerStageChanged, resp)
	}
	return resp, nil
}

// DeleteCustomer deletes a customer; confirmed must be true
func (s *customerServiceImpl) DeleteCustomer(ctx context.Context, customerID uuid.UUID, confirmed bool) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.manager.DeleteCustomer(ctx, customerID, confirmed); err != nil {
		return toAppError(err, "Customer")
	}

	s.events.emit(ctx, events.CustomerDeleted, map[string]uuid.UUID{"id": customerID})
	return nil
}
