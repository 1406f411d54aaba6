package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-backend/internal/models"
	"chat-backend/internal/repository"
)

type completer interface {
	Complete(ctx context.Context, history []models.ChatMessage) (string, error)
}

// EventPublisher delivers conversation events to connected clients.
type EventPublisher interface {
	Publish(ctx context.Context, msg models.WSMessage)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.WSMessage) {}

// ChatService runs message turns and the conversation directory on top of a
// Store. Turns against the same conversation are not serialized: two
// concurrent first messages may both retitle it, and the last write wins.
type ChatService struct {
	store     repository.Store
	completer completer
	events    EventPublisher
}

func NewChatService(store repository.Store, completer completer, events EventPublisher) *ChatService {
	if events == nil {
		events = noopPublisher{}
	}
	return &ChatService{store: store, completer: completer, events: events}
}

// ──── Conversation Directory ────

// CreateConversation stores a new conversation. A nil or blank title becomes
// models.DefaultConversationTitle.
func (s *ChatService) CreateConversation(ctx context.Context, title *string) (*models.Conversation, error) {
	t := models.DefaultConversationTitle
	if title != nil && strings.TrimSpace(*title) != "" {
		t = *title
	}

	c, err := s.store.CreateConversation(ctx, t)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, models.WSMessage{Type: models.EventConversationUpdated, Payload: c})
	return c, nil
}

func (s *ChatService) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	return s.store.ListConversations(ctx)
}

func (s *ChatService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	c, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "Conversation not found"}
	}
	return c, err
}

// DeleteConversation removes the conversation and its messages. Unknown ids
// succeed.
func (s *ChatService) DeleteConversation(ctx context.Context, id string) error {
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, models.WSMessage{
		Type:    models.EventConversationDeleted,
		Payload: models.ConversationDeleted{ConversationID: id},
	})
	return nil
}

// RenameConversation sets the title. Unknown ids are a no-op.
func (s *ChatService) RenameConversation(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Fields: map[string]string{"title": "Title is required"}}
	}

	if err := s.store.UpdateConversationTitle(ctx, id, title); err != nil {
		return err
	}
	s.publishConversation(ctx, id)
	return nil
}

func (s *ChatService) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	return s.store.ListMessages(ctx, conversationID)
}

// StartConversation creates a conversation for a first message and runs the
// turn, so the new conversation is titled after that message.
func (s *ChatService) StartConversation(ctx context.Context, req models.SendMessageRequest) (*models.TurnResult, error) {
	if err := validateSendMessage(req); err != nil {
		return nil, err
	}

	c, err := s.CreateConversation(ctx, nil)
	if err != nil {
		return nil, err
	}

	result, err := s.SendMessage(ctx, c.ID, req)
	if err != nil {
		return nil, err
	}

	if result.Conversation, err = s.store.GetConversation(ctx, c.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Deleted concurrently; report what was created.
			result.Conversation = c
			return result, nil
		}
		return nil, err
	}
	return result, nil
}

// ──── Turn Orchestrator ────

// SendMessage runs one turn: persist the user message, load the history,
// generate a reply, persist it, and title the conversation after its first
// message. The user message stays committed if a later step fails.
func (s *ChatService) SendMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.TurnResult, error) {
	if err := validateSendMessage(req); err != nil {
		return nil, err
	}

	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	userMessage, err := s.store.CreateMessage(ctx, conversationID, models.RoleUser, req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}
	s.events.Publish(ctx, models.WSMessage{Type: models.EventMessageCreated, Payload: userMessage})

	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	reply, err := s.completer.Complete(ctx, models.ToChatMessages(history))
	if err != nil {
		return nil, fmt.Errorf("failed to get AI response: %w", err)
	}

	aiMessage, err := s.store.CreateMessage(ctx, conversationID, models.RoleAssistant, reply)
	if err != nil {
		return nil, fmt.Errorf("failed to save AI response: %w", err)
	}
	s.events.Publish(ctx, models.WSMessage{Type: models.EventMessageCreated, Payload: aiMessage})

	if len(history) == 1 {
		if err := s.store.UpdateConversationTitle(ctx, conversationID, models.TruncateTitle(req.Content)); err != nil {
			return nil, fmt.Errorf("failed to update conversation title: %w", err)
		}
	}
	s.publishConversation(ctx, conversationID)

	return &models.TurnResult{UserMessage: userMessage, AIMessage: aiMessage}, nil
}

func (s *ChatService) publishConversation(ctx context.Context, id string) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return
	}
	s.events.Publish(ctx, models.WSMessage{Type: models.EventConversationUpdated, Payload: c})
}

func validateSendMessage(req models.SendMessageRequest) error {
	fields := map[string]string{}
	if req.Role != models.RoleUser {
		fields["role"] = `Role must be "user"`
	}
	if strings.TrimSpace(req.Content) == "" {
		fields["content"] = "Content is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
