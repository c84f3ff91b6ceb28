package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidTarget, http.StatusBadRequest},
		{ErrCodeInvalidPermutation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeStageInUse, http.StatusConflict},
		{ErrCodeStaleMove, http.StatusConflict},
		{ErrCodePartialReorder, http.StatusConflict},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}

func TestSendAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendAppError(c, NewAppError(ErrCodePartialReorder, "Reorder partially applied", map[string]int{"committedCount": 2}))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "PARTIAL_REORDER", errBody["code"])
	assert.Equal(t, float64(2), errBody["details"].(map[string]interface{})["committedCount"])
}

func TestSendSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendSuccess(c, http.StatusCreated, gin.H{"id": "x"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"x"}}`, w.Body.String())
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: Stage not found", NewNotFoundError("Stage not found", nil).Error())
	assert.Contains(t, NewValidationError("bad", "name").Error(), "(name)")
}
