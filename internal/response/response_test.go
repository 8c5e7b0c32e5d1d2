package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSendSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendSuccess(c, http.StatusOK, map[string]string{"status": "online"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"status":"online"}}`, w.Body.String())
}

func TestSendError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendError(c, http.StatusForbidden, ErrCodeForbidden, "Not a member of this workspace.")

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeForbidden, resp.Error.Code)
	assert.Equal(t, "Not a member of this workspace.", resp.Error.Message)
	assert.Equal(t, "Not a member of this workspace.", resp.Message)
}

func TestAppError(t *testing.T) {
	err := NewForbiddenError("Not a member of this workspace.", "")
	assert.Equal(t, "FORBIDDEN: Not a member of this workspace.", err.Error())

	wrapped := fmt.Errorf("update: %w", NewValidationError("Invalid status", "status is required"))
	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrCodeValidation, appErr.Code)
	assert.Equal(t, "VALIDATION_ERROR: Invalid status (status is required)", appErr.Error())

	assert.Equal(t, ErrCodeUnauthorized, NewUnauthorizedError("Unauthorized.", "").Code)
	assert.Equal(t, ErrCodeNotFound, NewNotFoundError("x", "").Code)
}
