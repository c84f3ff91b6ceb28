package repository

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"crm-pipeline-api/internal/client"
)

// Store-level failures shared by every record store implementation
var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("record store unavailable")
	ErrConstraint  = errors.New("record violates a store constraint")
)

// Column names accepted in partial updates
const (
	FieldName           = "name"
	FieldColor          = "color"
	FieldSecondaryColor = "bg_color"
	FieldPosition       = "position"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldCompany        = "company"
	FieldSource         = "source"
	FieldStageID        = "stage_id"
	FieldValue          = "value"
	FieldLastContact    = "last_contact"
	FieldCustomFields   = "custom_fields"
)

// translateGormError maps gorm failures onto the store taxonomy
func translateGormError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrInvalidField):
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// translateRESTError maps PostgREST client failures onto the store taxonomy
func translateRESTError(err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		switch {
		case apiErr.IsConstraintViolation():
			return fmt.Errorf("%w: %v", ErrConstraint, apiErr)
		case apiErr.StatusCode == http.StatusNotFound:
			return ErrNotFound
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
