package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"message": "test"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteJSON(w, http.StatusNoContent, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, map[string]string{"result": "success"}))
	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "success", dataMap["result"])
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name          string
		write         func(w http.ResponseWriter) error
		wantStatus    int
		wantCode      string
		wantMessage   string
		wantRetryable bool
	}{
		{
			name:        "bad request",
			write:       func(w http.ResponseWriter) error { return WriteBadRequest(w, "bad body", nil) },
			wantStatus:  http.StatusBadRequest,
			wantCode:    CodeBadRequest,
			wantMessage: "bad body",
		},
		{
			name:        "not found default message",
			write:       func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			wantStatus:  http.StatusNotFound,
			wantCode:    CodeNotFound,
			wantMessage: "Resource not found",
		},
		{
			name:        "method not allowed",
			write:       WriteMethodNotAllowed,
			wantStatus:  http.StatusMethodNotAllowed,
			wantCode:    CodeMethod,
			wantMessage: "Method not allowed",
		},
		{
			name:          "gateway timeout",
			write:         func(w http.ResponseWriter) error { return WriteGatewayTimeout(w, "") },
			wantStatus:    http.StatusGatewayTimeout,
			wantCode:      CodeTimeout,
			wantMessage:   "Request timed out",
			wantRetryable: true,
		},
		{
			name:          "service unavailable",
			write:         func(w http.ResponseWriter) error { return WriteServiceUnavailable(w, "no providers", nil) },
			wantStatus:    http.StatusServiceUnavailable,
			wantCode:      CodeUnavailable,
			wantMessage:   "no providers",
			wantRetryable: true,
		},
		{
			name:        "internal error default message",
			write:       func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			wantStatus:  http.StatusInternalServerError,
			wantCode:    CodeInternalError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantCode, response.Code)
			assert.Equal(t, tt.wantMessage, response.Message)
			assert.Equal(t, tt.wantRetryable, response.Retryable)
		})
	}
}

func TestWriteError_Details(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteError(w, http.StatusBadGateway, "REQUEST_FAILED", "upstream failed", true,
		map[string]interface{}{"provider": "openai"})
	require.NoError(t, err)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "openai", response.Details["provider"])
	assert.True(t, response.Retryable)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
		var b body
		require.NoError(t, DecodeJSON(r, &b))
		assert.Equal(t, "x", b.Name)
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
		var b body
		assert.Error(t, DecodeJSON(r, &b))
	})

	t.Run("malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var b body
		assert.Error(t, DecodeJSON(r, &b))
	})
}
