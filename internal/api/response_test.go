package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlcilliers/cvchat/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, domain.IngestResult{Chunks: 4, Tokens: 600})

	var result struct {
		Data domain.IngestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 4, result.Data.Chunks)
	assert.Equal(t, 600, result.Data.Tokens)
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", domain.ErrDocumentTooShort, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("parse: %w", domain.ErrUnreadableDocument), http.StatusBadRequest},
		{"unauthorized", domain.ErrInvalidAdminToken, http.StatusUnauthorized},
		{"not found", domain.ErrNoArchivedCV, http.StatusNotFound},
		{"embedding", domain.NewEmbeddingError("failed", errors.New("timeout")), http.StatusBadGateway},
		{"transport", domain.NewTransportError("failed", errors.New("reset")), http.StatusBadGateway},
		{"store", domain.ErrIndexInconsistent, http.StatusServiceUnavailable},
		{"not configured", domain.ErrArchiveNotEnabled, http.StatusServiceUnavailable},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, domain.ErrUnsupportedFileType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "only PDF files are supported", result.Error)

	w = httptest.NewRecorder()
	HandleError(w, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "internal server error", result.Error)
}
