package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/response"
)

func customerRoutes(m *MockCustomerService) func(r *gin.Engine) {
	h := NewCustomerHandler(m)
	return func(r *gin.Engine) {
		r.GET("/customers", h.ListCustomers)
		r.POST("/customers", h.CreateCustomer)
		r.GET("/customers/:customerId", h.GetCustomer)
		r.PATCH("/customers/:customerId", h.UpdateCustomer)
		r.DELETE("/customers/:customerId", h.DeleteCustomer)
		r.POST("/customers/:customerId/move", h.MoveCustomer)
	}
}

func TestCustomerHandler_ListCustomers(t *testing.T) {
	stageID := uuid.New()

	var got *dto.BoardFilters
	m := &MockCustomerService{
		ListCustomersFunc: func(ctx context.Context, filters *dto.BoardFilters) ([]dto.CustomerResponse, error) {
			got = filters
			return []dto.CustomerResponse{{ID: uuid.New(), Name: "Jane"}}, nil
		},
	}

	w := serve(customerRoutes(m), http.MethodGet, "/customers?search=acme&stageId="+stageID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "acme", got.Search)
	assert.Equal(t, stageID, *got.StageID)

	var customers []dto.CustomerResponse
	decodeData(t, w, &customers)
	assert.Len(t, customers, 1)

	w = serve(customerRoutes(m), http.MethodGet, "/customers?stageId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerHandler_CreateCustomer(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		serviceErr     error
		expectedStatus int
		expectedCode   string
	}{
		{"created", map[string]interface{}{"name": "Jane", "email": "jane@acme.com", "value": 1200}, nil, http.StatusCreated, ""},
		{"invalid email", map[string]interface{}{"name": "Jane", "email": "not-an-email"}, nil, http.StatusBadRequest, response.ErrCodeValidation},
		{"negative value", map[string]interface{}{"name": "Jane", "email": "jane@acme.com", "value": -1}, nil, http.StatusBadRequest, response.ErrCodeValidation},
		{
			"unknown stage",
			map[string]interface{}{"name": "Jane", "email": "jane@acme.com", "stageId": uuid.NewString()},
			response.NewAppError(response.ErrCodeInvalidTarget, "Target stage does not exist", nil),
			http.StatusBadRequest,
			response.ErrCodeInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockCustomerService{
				CreateCustomerFunc: func(ctx context.Context, req *dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &dto.CustomerResponse{ID: uuid.New(), Name: req.Name, Value: req.Value}, nil
				},
			}

			w := serve(customerRoutes(m), http.MethodPost, "/customers", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
			}
		})
	}
}

func TestCustomerHandler_MoveCustomer(t *testing.T) {
	customerID := uuid.New()
	from, to := uuid.New(), uuid.New()

	t.Run("moved", func(t *testing.T) {
		m := &MockCustomerService{
			MoveCustomerFunc: func(ctx context.Context, id uuid.UUID, req *dto.MoveCustomerRequest) (*dto.MoveCustomerResponse, error) {
				assert.Equal(t, customerID, id)
				assert.Equal(t, to, req.ToStageID)
				require.NotNil(t, req.FromStageID)
				assert.Equal(t, from, *req.FromStageID)
				return &dto.MoveCustomerResponse{Customer: dto.CustomerResponse{ID: id, StageID: &to}, FromStageID: &from, Moved: true}, nil
			},
		}
		w := serve(customerRoutes(m), http.MethodPost, "/customers/"+customerID.String()+"/move",
			dto.MoveCustomerRequest{ToStageID: to, FromStageID: &from})
		require.Equal(t, http.StatusOK, w.Code)

		var result dto.MoveCustomerResponse
		decodeData(t, w, &result)
		assert.True(t, result.Moved)
	})

	t.Run("stale", func(t *testing.T) {
		m := &MockCustomerService{
			MoveCustomerFunc: func(ctx context.Context, id uuid.UUID, req *dto.MoveCustomerRequest) (*dto.MoveCustomerResponse, error) {
				return nil, response.NewConflictError(response.ErrCodeStaleMove, "Customer is no longer in the expected stage", nil)
			},
		}
		w := serve(customerRoutes(m), http.MethodPost, "/customers/"+customerID.String()+"/move",
			dto.MoveCustomerRequest{ToStageID: to, FromStageID: &from})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.ErrCodeStaleMove, errorCode(t, w))
	})

	t.Run("target required", func(t *testing.T) {
		w := serve(customerRoutes(&MockCustomerService{}), http.MethodPost, "/customers/"+customerID.String()+"/move", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCustomerHandler_DeleteCustomer(t *testing.T) {
	customerID := uuid.New()

	var confirmed bool
	m := &MockCustomerService{
		DeleteCustomerFunc: func(ctx context.Context, id uuid.UUID, c bool) error {
			confirmed = c
			if !c {
				return response.NewValidationError("Deleting a customer requires confirmation", nil)
			}
			return nil
		},
	}

	w := serve(customerRoutes(m), http.MethodDelete, "/customers/"+customerID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, confirmed)

	w = serve(customerRoutes(m), http.MethodDelete, "/customers/"+customerID.String()+"?confirm=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, confirmed)
}

func TestCustomerHandler_GetCustomer(t *testing.T) {
	m := &MockCustomerService{
		GetCustomerFunc: func(ctx context.Context, id uuid.UUID) (*dto.CustomerResponse, error) {
			return nil, response.NewNotFoundError("Customer not found", nil)
		},
	}

	w := serve(customerRoutes(m), http.MethodGet, "/customers/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(customerRoutes(m), http.MethodGet, "/customers/123", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerHandler_UpdateCustomer(t *testing.T) {
	customerID := uuid.New()
	m := &MockCustomerService{
		UpdateCustomerFunc: func(ctx context.Context, id uuid.UUID, req *dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
			require.NotNil(t, req.Company)
			return &dto.CustomerResponse{ID: id, Company: *req.Company}, nil
		},
	}

	w := serve(customerRoutes(m), http.MethodPatch, "/customers/"+customerID.String(), map[string]string{"company": "Initech"})
	require.Equal(t, http.StatusOK, w.Code)

	var customer dto.CustomerResponse
	decodeData(t, w, &customer)
	assert.Equal(t, "Initech", customer.Company)
}
