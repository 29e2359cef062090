package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpoints/backend/internal/models"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid account", func(t *testing.T) {
		valid := models.NewAccount{
			ScanCode:       "TEST123",
			DisplayName:    "Ivan Ivanov",
			GroupLabel:     "5A",
			InitialBalance: 1000,
		}

		assert.NoError(t, vh.ValidateStruct(&valid))
	})

	t.Run("missing scan code and negative balance", func(t *testing.T) {
		invalid := models.NewAccount{
			InitialBalance: -1,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 2)
	})

	t.Run("zero opening balance is allowed", func(t *testing.T) {
		assert.NoError(t, vh.ValidateStruct(&models.NewAccount{ScanCode: "EMPTY"}))
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Empty(t, response.Code)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&models.NewAccount{InitialBalance: -5})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendCodedErrorResponse(w, "Validation failed", "InvalidAmount", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.Equal(t, "InvalidAmount", response.Code)
		assert.Contains(t, response.Details, "ScanCode")
		assert.Contains(t, response.Details, "InitialBalance")
	})

	t.Run("non-validation error is not expanded", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, errors.New("unexpected EOF"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Invalid request", response.Error)
		assert.Nil(t, response.Details)
	})
}

func TestNewValidationHelper(t *testing.T) {
	vh := NewValidationHelper()
	assert.NotNil(t, vh)
	assert.NotNil(t, vh.validator)
}
