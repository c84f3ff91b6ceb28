package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crm-pipeline-api/internal/response"
	"crm-pipeline-api/internal/service"
)

type BoardHandler struct {
	boardService  service.BoardService
	exportService service.ExportService
}

func NewBoardHandler(boardService service.BoardService, exportService service.ExportService) *BoardHandler {
	return &BoardHandler{
		boardService:  boardService,
		exportService: exportService,
	}
}

// GetBoard godoc
// @Summary      Get pipeline board
// @Description  Groups customers under their stages with per-stage totals. Filters narrow the customers and totals, every stage column stays.
// @Tags         board
// @Produce      json
// @Param        search query string false "Case-insensitive search term"
// @Param        stageId query string false "Stage ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.BoardResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /board [get]
// @Security     BearerAuth
func (h *BoardHandler) GetBoard(c *gin.Context) {
	filters, ok := bindBoardFilters(c)
	if !ok {
		return
	}

	board, err := h.boardService.GetBoard(c.Request.Context(), filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, board)
}

// ReloadBoard godoc
// @Summary      Reload board
// @Description  Reloads stages and customers from the record store. On failure the previous board is kept.
// @Tags         board
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.BoardResponse}
// @Failure      503 {object} response.ErrorResponse
// @Router       /board/reload [post]
// @Security     BearerAuth
func (h *BoardHandler) ReloadBoard(c *gin.Context) {
	board, err := h.boardService.ReloadBoard(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, board)
}

// ExportBoard godoc
// @Summary      Export board
// @Description  Uploads a JSON snapshot of the board and returns a presigned download URL
// @Tags         board
// @Produce      json
// @Success      201 {object} response.SuccessResponse{data=dto.ExportResponse}
// @Failure      503 {object} response.ErrorResponse "Export storage unavailable"
// @Router       /board/export [post]
// @Security     BearerAuth
func (h *BoardHandler) ExportBoard(c *gin.Context) {
	export, err := h.exportService.ExportBoard(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, export)
}

// ListExports godoc
// @Summary      List board exports
// @Description  Lists recorded board exports, newest first
// @Tags         board
// @Produce      json
// @Param        limit query int false "Maximum number of exports" default(20)
// @Success      200 {object} response.SuccessResponse{data=[]dto.ExportRecordResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /board/exports [get]
// @Security     BearerAuth
func (h *BoardHandler) ListExports(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	exports, err := h.exportService.ListExports(c.Request.Context(), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, exports)
}
