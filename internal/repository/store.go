package repository

import (
	"context"
	"errors"
	"fmt"

	"chat-backend/internal/models"
)

// ErrNotFound is returned by point lookups when the conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Store persists conversations and their messages.
//
// Deletes and title updates of unknown conversations are no-ops. Listings
// never return nil: an empty result is an empty slice. Conversations are
// listed by UpdatedAt descending, messages by CreatedAt ascending with ties
// kept in insertion order. Appending a message moves its conversation's
// UpdatedAt forward; it never moves backwards.
type Store interface {
	CreateConversation(ctx context.Context, title string) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]*models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	UpdateConversationTitle(ctx context.Context, id, title string) error

	CreateMessage(ctx context.Context, conversationID string, role models.Role, content string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
}

// Storage backends selectable through STORAGE_TYPE.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

func ValidStorageType(t string) error {
	switch t {
	case StorageMemory, StoragePostgres, StorageSQLite:
		return nil
	}
	return fmt.Errorf("unknown storage type %q (want %s, %s or %s)", t, StorageMemory, StoragePostgres, StorageSQLite)
}
