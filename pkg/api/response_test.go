package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cV "github.com/temmyjay001/agency-service/pkg/validator"
)

func TestWriteSuccessResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessResponse(rec, http.StatusCreated, map[string]int{"balance": 10})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"balance":10}}`, rec.Body.String())
}

func TestWriteErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBadGatewayResponse(rec, "automation temporarily unavailable")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"automation temporarily unavailable"}`, rec.Body.String())
}

func TestWriteValidationErrorResponse(t *testing.T) {
	type request struct {
		UserID string `json:"userId" validate:"required"`
		Amount int64  `json:"amount" validate:"gt=0"`
	}

	err := cV.GetValidator().Struct(request{})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationErrorResponse(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Error   string
		Data    struct {
			ValidationErrors map[string]string `json:"validation_errors"`
		}
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, "userId is required", body.Data.ValidationErrors["userId"])
	assert.Equal(t, "amount must be greater than 0", body.Data.ValidationErrors["amount"])
}
