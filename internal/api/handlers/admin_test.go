package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jlcilliers/cvchat/internal/domain"
)

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAdminHandler_Upload_Success(t *testing.T) {
	uploads := new(MockUploadService)
	handler := NewAdminHandler(uploads, new(MockIndexStatusService))

	pdf := []byte("%PDF-1.4 fake")
	uploads.On("IngestDocument", mock.Anything, "jane-doe.pdf", pdf).
		Return(&domain.IngestResult{Chunks: 4, Tokens: 600}, nil)

	w := httptest.NewRecorder()
	handler.Upload(w, uploadRequest(t, "file", "jane-doe.pdf", pdf))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"chunks":4,"tokens":600}}`, w.Body.String())
	uploads.AssertExpectations(t)
}

func TestAdminHandler_Upload_MissingFile(t *testing.T) {
	uploads := new(MockUploadService)
	handler := NewAdminHandler(uploads, new(MockIndexStatusService))

	w := httptest.NewRecorder()
	handler.Upload(w, uploadRequest(t, "attachment", "cv.pdf", []byte("%PDF-1.4")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"no file provided"}`, w.Body.String())
	uploads.AssertNotCalled(t, "IngestDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminHandler_Upload_NotMultipart(t *testing.T) {
	handler := NewAdminHandler(new(MockUploadService), new(MockIndexStatusService))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandler_Upload_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"wrong type", domain.ErrUnsupportedFileType, http.StatusBadRequest},
		{"scanned pdf", domain.ErrInsufficientText, http.StatusBadRequest},
		{"store failure", domain.NewStoreError("failed to write index", errors.New("READONLY")), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploads := new(MockUploadService)
			uploads.On("IngestDocument", mock.Anything, "cv.docx", mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			NewAdminHandler(uploads, new(MockIndexStatusService)).Upload(w, uploadRequest(t, "file", "cv.docx", []byte("data")))

			assert.Equal(t, tt.status, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestAdminHandler_IndexStatus(t *testing.T) {
	index := new(MockIndexStatusService)
	index.On("Status", mock.Anything).Return(&domain.IndexStatus{Mode: "lexical", Indexed: true, Chunks: 4}, nil)

	w := httptest.NewRecorder()
	NewAdminHandler(new(MockUploadService), index).IndexStatus(w, httptest.NewRequest(http.MethodGet, "/api/admin/index", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"mode":"lexical","indexed":true,"chunks":4}}`, w.Body.String())
}

func TestAdminHandler_Document(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		err    error
		status int
		body   string
	}{
		{"presigned", "https://s3.local/cv/latest.pdf?X-Amz-Signature=abc", nil, http.StatusOK, `{"data":{"url":"https://s3.local/cv/latest.pdf?X-Amz-Signature=abc"}}`},
		{"archive disabled", "", domain.ErrArchiveNotEnabled, http.StatusServiceUnavailable, `{"error":"document archive not configured: S3_ENDPOINT required"}`},
		{"nothing uploaded", "", domain.ErrNoArchivedCV, http.StatusNotFound, `{"error":"no CV has been uploaded yet"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploads := new(MockUploadService)
			uploads.On("DownloadURL", mock.Anything).Return(tt.url, tt.err)

			w := httptest.NewRecorder()
			NewAdminHandler(uploads, new(MockIndexStatusService)).Document(w, httptest.NewRequest(http.MethodGet, "/api/admin/document", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}
