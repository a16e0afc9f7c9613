package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
	assert.Equal(t, map[string]interface{}{"id": "abc"}, body.Data)
}

func TestValidationFailed(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationFailed(rec, map[string]string{"amount": "amount must be greater than 0"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "amount must be greater than 0", body.Error.Details["amount"])
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		send   func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"bad request", BadRequest, http.StatusBadRequest, "BAD_REQUEST"},
		{"not found", NotFound, http.StatusNotFound, "NOT_FOUND"},
		{"internal", InternalError, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unauthorized", Unauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", Forbidden, http.StatusForbidden, "FORBIDDEN"},
		{"conflict", Conflict, http.StatusConflict, "CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.send(rec, "boom")

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, "boom", body.Error.Message)
		})
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(2, 20, 41)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 0, NewMeta(1, 0, 10).TotalPages)
}
