package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chat-backend/internal/models"
)

type ConversationHandler struct {
	chat chatService
}

type chatService interface {
	CreateConversation(ctx context.Context, title *string) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]*models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	RenameConversation(ctx context.Context, id, title string) error
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
	SendMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.TurnResult, error)
	StartConversation(ctx context.Context, req models.SendMessageRequest) (*models.TurnResult, error)
}

func NewConversationHandler(chat chatService) *ConversationHandler {
	return &ConversationHandler{chat: chat}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.chat.ListConversations(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "Failed to fetch conversations")
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConversationRequest
	if err := decodeBody(r, &req, true); err != nil {
		handleServiceError(w, r, err, "Failed to create conversation")
		return
	}

	conversation, err := h.chat.CreateConversation(r.Context(), req.Title)
	if err != nil {
		handleServiceError(w, r, err, "Failed to create conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.chat.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err, "Failed to fetch conversation")
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateConversationRequest
	if err := decodeBody(r, &req, false); err != nil {
		handleServiceError(w, r, err, "Failed to update conversation")
		return
	}

	if err := h.chat.RenameConversation(r.Context(), chi.URLParam(r, "id"), req.Title); err != nil {
		handleServiceError(w, r, err, "Failed to update conversation")
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err, "Failed to delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.ListMessages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err, "Failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := decodeBody(r, &req, false); err != nil {
		handleServiceError(w, r, err, "Failed to send message")
		return
	}

	result, err := h.chat.SendMessage(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleServiceError(w, r, err, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StartConversation sends a first message without an existing conversation.
func (h *ConversationHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := decodeBody(r, &req, false); err != nil {
		handleServiceError(w, r, err, "Failed to send message")
		return
	}

	result, err := h.chat.StartConversation(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
