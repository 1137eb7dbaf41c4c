package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jlcilliers/cvchat/internal/api"
	"github.com/jlcilliers/cvchat/internal/domain"
)

type ChatService interface {
	Reply(ctx context.Context, messages []domain.Message) (*domain.ChatReply, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Messages []domain.Message `json:"messages"`
}

// Chat answers the last visitor message using the indexed CV.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.svc.Reply(r.Context(), req.Messages)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, reply)
}
