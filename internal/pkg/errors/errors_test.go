package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_WithDetailsDoesNotMutateShared(t *testing.T) {
	withDetails := ErrValidation.WithDetails(map[string]interface{}{"bins": []string{"bad"}})

	assert.Equal(t, "VALIDATION_ERROR", withDetails.Code)
	assert.Equal(t, http.StatusBadRequest, withDetails.StatusCode)
	assert.Contains(t, withDetails.Details, "bins")
	assert.Empty(t, ErrValidation.Details)
}

func TestAppError_WithMessage(t *testing.T) {
	err := ErrInvalidGeometry.WithMessage("ring is not closed")

	assert.Equal(t, "INVALID_GEOMETRY: ring is not closed", err.Error())
	assert.Equal(t, "Invalid query geometry", ErrInvalidGeometry.Message)
}

func TestFieldErrors(t *testing.T) {
	err := FieldErrors(map[string][]string{
		"threshold": {"Threshold must be between 0 and 100."},
	})

	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, []string{"Threshold must be between 0 and 100."}, err.Details["threshold"])
}
