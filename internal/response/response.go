package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse is the envelope of every successful response
type SuccessResponse struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the envelope of every failed response
type ErrorResponse struct {
	Success bool      `json:"success" example:"false"`
	Error   ErrorBody `json:"error"`
}

// ErrorBody carries the error code and message
type ErrorBody struct {
	Code    string      `json:"code" example:"NOT_FOUND"`
	Message string      `json:"message" example:"Stage not found"`
	Details interface{} `json:"details,omitempty"`
}

// SendSuccess writes data in the success envelope
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{Success: true, Data: data})
}

// SendError writes an error envelope
func SendError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// SendAppError writes an AppError with its details
func SendAppError(c *gin.Context, err *AppError) {
	c.JSON(StatusFor(err.Code), ErrorResponse{Error: ErrorBody{
		Code:    err.Code,
		Message: err.Message,
		Details: err.Details,
	}})
}

// StatusFor maps an error code to its HTTP status
func StatusFor(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidTarget, ErrCodeInvalidPermutation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeStageInUse, ErrCodeStaleMove, ErrCodePartialReorder:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
