package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/response"
	"crm-pipeline-api/internal/service"
)

type StageHandler struct {
	stageService service.StageService
}

func NewStageHandler(stageService service.StageService) *StageHandler {
	return &StageHandler{
		stageService: stageService,
	}
}

// ListStages godoc
// @Summary      List stages
// @Description  Returns the pipeline stages in left-to-right order
// @Tags         stages
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=[]dto.StageResponse}
// @Failure      500 {object} response.ErrorResponse
// @Router       /stages [get]
// @Security     BearerAuth
func (h *StageHandler) ListStages(c *gin.Context) {
	stages, err := h.stageService.ListStages(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, stages)
}

// CreateStage godoc
// @Summary      Create stage
// @Description  Appends a stage after the current last stage
// @Tags         stages
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateStageRequest true "Stage"
// @Success      201 {object} response.SuccessResponse{data=dto.StageResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse "Record store unavailable"
// @Router       /stages [post]
// @Security     BearerAuth
func (h *StageHandler) CreateStage(c *gin.Context) {
	var req dto.CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	stage, err := h.stageService.CreateStage(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, stage)
}

// UpdateStage godoc
// @Summary      Update stage
// @Description  Renames or recolors a stage. Omitted fields keep their value.
// @Tags         stages
// @Accept       json
// @Produce      json
// @Param        stageId path string true "Stage ID (UUID)"
// @Param        request body dto.UpdateStageRequest true "Stage fields"
// @Success      200 {object} response.SuccessResponse{data=dto.StageResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /stages/{stageId} [patch]
// @Security     BearerAuth
func (h *StageHandler) UpdateStage(c *gin.Context) {
	stageID, ok := parseUUIDParam(c, "stageId", "stage")
	if !ok {
		return
	}

	var req dto.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	stage, err := h.stageService.UpdateStage(c.Request.Context(), stageID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, stage)
}

// DeleteStage godoc
// @Summary      Delete stage
// @Description  Deletes a stage. Fails with STAGE_IN_USE while customers reference it unless reassignTo names another stage.
// @Tags         stages
// @Produce      json
// @Param        stageId path string true "Stage ID (UUID)"
// @Param        reassignTo query string false "Stage receiving the customers of the deleted stage"
// @Success      200 {object} response.SuccessResponse{data=dto.DeleteStageResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse "Stage in use"
// @Failure      503 {object} response.ErrorResponse
// @Router       /stages/{stageId} [delete]
// @Security     BearerAuth
func (h *StageHandler) DeleteStage(c *gin.Context) {
	stageID, ok := parseUUIDParam(c, "stageId", "stage")
	if !ok {
		return
	}
	reassignTo, ok := parseOptionalUUIDQuery(c, "reassignTo")
	if !ok {
		return
	}

	result, err := h.stageService.DeleteStage(c.Request.Context(), stageID, reassignTo)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

// ReorderStages godoc
// @Summary      Reorder stages
// @Description  Applies a full left-to-right order. An interrupted reorder returns PARTIAL_REORDER; sending the same order again completes it.
// @Tags         stages
// @Accept       json
// @Produce      json
// @Param        request body dto.ReorderStagesRequest true "Stage order"
// @Success      200 {object} response.SuccessResponse{data=[]dto.StageResponse}
// @Failure      400 {object} response.ErrorResponse "Not a permutation of the stages"
// @Failure      409 {object} response.ErrorResponse{error=response.ErrorBody{details=dto.PartialReorderDetails}} "Partially applied"
// @Failure      503 {object} response.ErrorResponse
// @Router       /stages/order [put]
// @Security     BearerAuth
func (h *StageHandler) ReorderStages(c *gin.Context) {
	var req dto.ReorderStagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	stages, err := h.stageService.ReorderStages(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, stages)
}
