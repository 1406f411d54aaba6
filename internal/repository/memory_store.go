package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/models"
)

// MemoryStore keeps conversations in process memory. Its contents are lost on
// shutdown. Messages are not checked against their conversation: a message
// may reference a conversation that never existed.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
	messages      map[string][]models.Message // by conversation, insertion order
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := models.Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[c.ID] = c
	return &c, nil
}

func (s *MemoryStore) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*models.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		c := c
		items = append(items, &c)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items, nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) UpdateConversationTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil
	}
	c.Title = title
	c.UpdatedAt = later(c.UpdatedAt, s.now())
	s.conversations[id] = c
	return nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, conversationID string, role models.Role, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      s.now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], m)

	if c, ok := s.conversations[conversationID]; ok {
		c.UpdatedAt = later(c.UpdatedAt, m.CreatedAt)
		s.conversations[conversationID] = c
	}
	return &m, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[conversationID]
	items := make([]*models.Message, 0, len(stored))
	for _, m := range stored {
		m := m
		items = append(items, &m)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// later returns the greater of two instants so UpdatedAt never regresses when
// the wall clock steps backwards.
func later(current, candidate time.Time) time.Time {
	if candidate.After(current) {
		return candidate
	}
	return current
}
