package models

import "time"

// Role attributes a message to a participant in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DefaultConversationTitle is used when a conversation is created without one.
const DefaultConversationTitle = "New Conversation"

// TitleMaxChars bounds the title derived from a conversation's first message.
const TitleMaxChars = 50

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is immutable once created. CreatedAt orders messages within a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ChatMessage is the role-tagged content handed to a completion provider.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type CreateConversationRequest struct {
	Title *string `json:"title"`
}

type UpdateConversationRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnResult holds both messages persisted by a single turn.
type TurnResult struct {
	Conversation *Conversation `json:"conversation,omitempty"`
	UserMessage  *Message      `json:"userMessage"`
	AIMessage    *Message      `json:"aiMessage"`
}

// ToChatMessages maps stored messages to provider input, preserving order.
func ToChatMessages(messages []*Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// TruncateTitle returns the first TitleMaxChars characters of s.
func TruncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= TitleMaxChars {
		return s
	}
	return string(runes[:TitleMaxChars])
}
