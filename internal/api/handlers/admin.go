package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/jlcilliers/cvchat/internal/api"
	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/service"
)

// multipartMemory is the part of an upload form parsed into memory; the rest
// spills to temporary files.
const multipartMemory = 12 << 20

type UploadService interface {
	IngestDocument(ctx context.Context, filename string, data []byte) (*domain.IngestResult, error)
	DownloadURL(ctx context.Context) (string, error)
}

type IndexStatusService interface {
	Status(ctx context.Context) (*domain.IndexStatus, error)
}

type AdminHandler struct {
	uploads UploadService
	index   IndexStatusService
}

func NewAdminHandler(uploads UploadService, index IndexStatusService) *AdminHandler {
	return &AdminHandler{uploads: uploads, index: index}
}

type DocumentResponse struct {
	URL string `json:"url"`
}

// Upload ingests the PDF sent as the "file" form field, replacing the index.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.HandleError(w, domain.ErrFileTooLarge)
			return
		}
		api.HandleError(w, domain.ErrMissingFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.HandleError(w, domain.ErrMissingFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxUploadBytes+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	result, err := h.uploads.IngestDocument(r.Context(), header.Filename, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// IndexStatus reports the mode and size of the stored index.
func (h *AdminHandler) IndexStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.index.Status(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, status)
}

func (h *AdminHandler) Document(w http.ResponseWriter, r *http.Request) {
	url, err := h.uploads.DownloadURL(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, DocumentResponse{URL: url})
}
