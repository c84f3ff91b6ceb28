package response

import "fmt"

// Error codes returned in the error envelope
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInvalidTarget      = "INVALID_TARGET"
	ErrCodeInvalidPermutation = "INVALID_PERMUTATION"
	ErrCodeStageInUse         = "STAGE_IN_USE"
	ErrCodeStaleMove          = "STALE_MOVE"
	ErrCodePartialReorder     = "PARTIAL_REORDER"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// AppError is the error type returned by the service layer
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError creates an AppError with the given code
func NewAppError(code, message string, details interface{}) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

func NewValidationError(message string, details interface{}) *AppError {
	return NewAppError(ErrCodeValidation, message, details)
}

func NewNotFoundError(message string, details interface{}) *AppError {
	return NewAppError(ErrCodeNotFound, message, details)
}

func NewConflictError(code, message string, details interface{}) *AppError {
	return NewAppError(code, message, details)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, nil)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, nil)
}

func NewServiceUnavailableError(message string, details interface{}) *AppError {
	return NewAppError(ErrCodeServiceUnavailable, message, details)
}

func NewInternalError(message string, details interface{}) *AppError {
	return NewAppError(ErrCodeInternal, message, details)
}
