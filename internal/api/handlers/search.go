package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jlcilliers/cvchat/internal/api"
	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/service"
)

// MaxSearchTopK caps the number of chunks a single search may return.
const MaxSearchTopK = 20

type SearchService interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.Chunk, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type SearchResponse struct {
	Results []domain.Chunk `json:"results"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		api.HandleError(w, domain.ErrEmptyQuery)
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = service.DefaultTopK
	}
	if topK > MaxSearchTopK {
		topK = MaxSearchTopK
	}

	chunks, err := h.svc.Retrieve(r.Context(), req.Query, topK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: chunks})
}
