package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/response"
	"crm-pipeline-api/internal/service"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// ListCustomers godoc
// @Summary      List customers
// @Description  Returns customers, optionally filtered by a search term (name, email, company) and stage
// @Tags         customers
// @Produce      json
// @Param        search query string false "Case-insensitive search term"
// @Param        stageId query string false "Stage ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=[]dto.CustomerResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /customers [get]
// @Security     BearerAuth
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	filters, ok := bindBoardFilters(c)
	if !ok {
		return
	}

	customers, err := h.customerService.ListCustomers(c.Request.Context(), filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, customers)
}

// GetCustomer godoc
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Param        customerId path string true "Customer ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.CustomerResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /customers/{customerId} [get]
// @Security     BearerAuth
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customerID, ok := parseUUIDParam(c, "customerId", "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(c.Request.Context(), customerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, customer)
}

// CreateCustomer godoc
// @Summary      Create customer
// @Description  Creates a customer in stageId, or in the first stage when omitted
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateCustomerRequest true "Customer"
// @Success      201 {object} response.SuccessResponse{data=dto.CustomerResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /customers [post]
// @Security     BearerAuth
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, customer)
}

// UpdateCustomer godoc
// @Summary      Update customer
// @Description  Edits customer fields. Stage changes go through the move endpoint.
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        customerId path string true "Customer ID (UUID)"
// @Param        request body dto.UpdateCustomerRequest true "Customer fields"
// @Success      200 {object} response.SuccessResponse{data=dto.CustomerResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /customers/{customerId} [patch]
// @Security     BearerAuth
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	customerID, ok := parseUUIDParam(c, "customerId", "customer")
	if !ok {
		return
	}

	var req dto.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), customerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, customer)
}

// MoveCustomer godoc
// @Summary      Move customer
// @Description  Moves a customer to another stage and stamps lastContact. Moving to the current stage is a no-op.
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        customerId path string true "Customer ID (UUID)"
// @Param        request body dto.MoveCustomerRequest true "Target stage"
// @Success      200 {object} response.SuccessResponse{data=dto.MoveCustomerResponse}
// @Failure      400 {object} response.ErrorResponse "Invalid target stage"
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse "Customer is no longer in fromStageId"
// @Failure      503 {object} response.ErrorResponse
// @Router       /customers/{customerId}/move [post]
// @Security     BearerAuth
func (h *CustomerHandler) MoveCustomer(c *gin.Context) {
	customerID, ok := parseUUIDParam(c, "customerId", "customer")
	if !ok {
		return
	}

	var req dto.MoveCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	result, err := h.customerService.MoveCustomer(c.Request.Context(), customerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

// DeleteCustomer godoc
// @Summary      Delete customer
// @Description  Deletes a customer. Requires confirm=true.
// @Tags         customers
// @Produce      json
// @Param        customerId path string true "Customer ID (UUID)"
// @Param        confirm query bool true "Must be true"
// @Success      200 {object} response.SuccessResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /customers/{customerId} [delete]
// @Security     BearerAuth
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	customerID, ok := parseUUIDParam(c, "customerId", "customer")
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	if err := h.customerService.DeleteCustomer(c.Request.Context(), customerID, confirmed); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, map[string]string{"message": "Customer deleted successfully"})
}

func bindBoardFilters(c *gin.Context) (*dto.BoardFilters, bool) {
	stageID, ok := parseOptionalUUIDQuery(c, "stageId")
	if !ok {
		return nil, false
	}
	return &dto.BoardFilters{Search: c.Query("search"), StageID: stageID}, true
}
