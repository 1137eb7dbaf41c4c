package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader_ReportsProgress(t *testing.T) {
	data := []byte("hello world this is test data")

	var progressCalls []struct{ current, total int64 }
	pr := &progressReader{
		reader: bytes.NewReader(data),
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressCalls = append(progressCalls, struct{ current, total int64 }{current, total})
		},
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)

	require.NotEmpty(t, progressCalls)
	lastCall := progressCalls[len(progressCalls)-1]
	assert.Equal(t, int64(len(data)), lastCall.current)
	assert.Equal(t, int64(len(data)), lastCall.total)
}

func TestProgressReader_NilCallback(t *testing.T) {
	data := []byte("hello world")
	pr := &progressReader{reader: bytes.NewReader(data), total: int64(len(data))}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestAPIClient_Post(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "go", body["query"])

		w.Write([]byte(`{"data":{"results":[{"id":"chunk-0","text":"Go developer"}]}}`))
	}))
	defer srv.Close()

	var resp searchResponse
	err := NewAPIClient(srv.URL+"/", "").Post(context.Background(), "/api/search", searchRequest{Query: "go"}, &resp)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "chunk-0", resp.Results[0].ID)
}

func TestAPIClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"envelope", http.StatusUnauthorized, `{"error":"unauthorized"}`, "API error (401): unauthorized"},
		{"plain text", http.StatusBadGateway, "upstream down\n", "API error (502): upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewAPIClient(srv.URL, "token").Get(context.Background(), "/api/admin/index", nil)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.EqualError(t, err, tt.expected)
		})
	}
}

func TestAPIClient_UploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "cv.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4 test", string(data))

		w.Write([]byte(`{"data":{"chunks":3,"tokens":420}}`))
	}))
	defer srv.Close()

	var lastProgress, total int64
	var result struct {
		Chunks int `json:"chunks"`
		Tokens int `json:"tokens"`
	}
	err := NewAPIClient(srv.URL, "s3cret").UploadFile(context.Background(), "/api/admin/upload", "cv.pdf",
		strings.NewReader("%PDF-1.4 test"), func(current, t int64) { lastProgress, total = current, t }, &result)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Chunks)
	assert.Equal(t, 420, result.Tokens)
	assert.Equal(t, total, lastProgress)
}
