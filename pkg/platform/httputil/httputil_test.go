package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "refunds/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        string
		description string
	}{
		{"bad request", dErrors.New(dErrors.CodeBadRequest, "merchant_id is required"), http.StatusBadRequest, "bad_request", "merchant_id is required"},
		{"not found", dErrors.New(dErrors.CodeNotFound, "parameter not found"), http.StatusNotFound, "not_found", "parameter not found"},
		{"unavailable", dErrors.New(dErrors.CodeUnavailable, "rule store timed out"), http.StatusServiceUnavailable, "unavailable", "rule store timed out"},
		{"invalid config", dErrors.New(dErrors.CodeInvalidConfig, "allowedMethods has unknown entry"), http.StatusUnprocessableEntity, "invalid_config", "allowedMethods has unknown entry"},
		{"unprocessable", dErrors.New(dErrors.CodeUnprocessable, "no valid refund method"), http.StatusUnprocessableEntity, "unprocessable", "no valid refund method"},
		{"internal hides description", dErrors.New(dErrors.CodeInternal, "db failed"), http.StatusInternalServerError, "internal_error", ""},
		{"uncoded error is internal", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.code, body["error"])
			assert.Equal(t, tt.description, body["error_description"])
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		MerchantID string `json:"merchant_id"`
	}

	t.Run("decodes known fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"merchant_id":"mer_1"}`))
		got, err := DecodeJSON[payload](r)
		require.NoError(t, err)
		assert.Equal(t, "mer_1", got.MerchantID)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"merchant":"mer_1"}`))
		_, err := DecodeJSON[payload](r)
		assert.Equal(t, dErrors.CodeBadRequest, dErrors.GetCode(err))
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		_, err := DecodeJSON[payload](r)
		assert.Equal(t, dErrors.CodeBadRequest, dErrors.GetCode(err))
	})
}
