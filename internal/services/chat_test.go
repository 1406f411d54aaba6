package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/models"
	"chat-backend/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.WSMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingCompleter struct{}

func (failingCompleter) Complete(ctx context.Context, history []models.ChatMessage) (string, error) {
	return "", errors.New("no reply available")
}

// failingStore fails CreateMessage for the given role.
type failingStore struct {
	repository.Store
	failRole models.Role
}

func (s *failingStore) CreateMessage(ctx context.Context, conversationID string, role models.Role, content string) (*models.Message, error) {
	if role == s.failRole {
		return nil, errors.New("disk full")
	}
	return s.Store.CreateMessage(ctx, conversationID, role, content)
}

func newTestChatService(t *testing.T) (*ChatService, *repository.MemoryStore, *recordingPublisher) {
	t.Helper()
	store := repository.NewMemoryStore()
	events := &recordingPublisher{}
	return NewChatService(store, NewCompletionService(nil, time.Second, 1), events), store, events
}

func userMessage(content string) models.SendMessageRequest {
	return models.SendMessageRequest{Role: models.RoleUser, Content: content}
}

func TestChatService_CreateConversation_DefaultTitle(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConversationTitle, c.Title)

	blank := "   "
	c, err = svc.CreateConversation(ctx, &blank)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConversationTitle, c.Title)

	title := "Recipes"
	c, err = svc.CreateConversation(ctx, &title)
	require.NoError(t, err)
	assert.Equal(t, "Recipes", c.Title)
}

func TestChatService_FirstMessageTitlesConversation(t *testing.T) {
	svc, _, events := newTestChatService(t)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	result, err := svc.SendMessage(ctx, c.ID, userMessage("Hello there, what is the weather?"))
	require.NoError(t, err)

	assert.Equal(t, "Hello there, what is the weather?", result.UserMessage.Content)
	assert.Equal(t, models.RoleUser, result.UserMessage.Role)
	assert.Equal(t, models.RoleAssistant, result.AIMessage.Role)
	assert.Equal(t, FallbackReply(userTurn("Hello there, what is the weather?")), result.AIMessage.Content)
	assert.Nil(t, result.Conversation)

	got, err := svc.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello there, what is the weather?", got.Title)

	messages, err := svc.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, result.UserMessage.ID, messages[0].ID)
	assert.Equal(t, result.AIMessage.ID, messages[1].ID)

	assert.Equal(t, []string{
		models.EventConversationUpdated,
		models.EventMessageCreated,
		models.EventMessageCreated,
		models.EventConversationUpdated,
	}, events.types())
}

func TestChatService_SecondMessageKeepsTitle(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, c.ID, userMessage("First question"))
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, c.ID, userMessage("A completely different follow-up"))
	require.NoError(t, err)

	got, err := svc.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "First question", got.Title)
}

func TestChatService_TitleTruncatedToFiftyCharacters(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	long := strings.Repeat("abcdefghij", 8)
	_, err = svc.SendMessage(ctx, c.ID, userMessage(long))
	require.NoError(t, err)

	got, err := svc.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, long[:50], got.Title)
}

func TestChatService_HistoryForwardedToCompleter(t *testing.T) {
	store := repository.NewMemoryStore()
	p := &stubProvider{reply: "ok"}
	svc := NewChatService(store, NewCompletionService(p, time.Second, 1), nil)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, c.ID, userMessage("one"))
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, c.ID, userMessage("two"))
	require.NoError(t, err)

	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "ok"},
		{Role: models.RoleUser, Content: "two"},
	}, p.history)
}

func TestChatService_SendMessage_Validation(t *testing.T) {
	svc, store, _ := newTestChatService(t)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		req    models.SendMessageRequest
		fields []string
	}{
		{"empty content", models.SendMessageRequest{Role: models.RoleUser, Content: ""}, []string{"content"}},
		{"whitespace content", models.SendMessageRequest{Role: models.RoleUser, Content: " \n\t"}, []string{"content"}},
		{"assistant role", models.SendMessageRequest{Role: models.RoleAssistant, Content: "hi"}, []string{"role"}},
		{"missing everything", models.SendMessageRequest{}, []string{"role", "content"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, c.ID, tc.req)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			for _, field := range tc.fields {
				assert.Contains(t, validationErr.Fields, field)
			}
		})
	}

	messages, err := store.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "invalid requests must not write")
}

func TestChatService_SendMessage_UnknownConversation(t *testing.T) {
	svc, store, _ := newTestChatService(t)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "missing", userMessage("hello"))

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	messages, err := store.ListMessages(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestChatService_CompleterFailureKeepsUserMessage(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewChatService(store, failingCompleter{}, nil)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, c.ID, userMessage("hello"))
	require.Error(t, err)

	messages, err := store.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleUser, messages[0].Role)
}

func TestChatService_UserMessagePersistFailureAbortsTurn(t *testing.T) {
	p := &stubProvider{reply: "unused"}
	store := &failingStore{Store: repository.NewMemoryStore(), failRole: models.RoleUser}
	svc := NewChatService(store, NewCompletionService(p, time.Second, 1), nil)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, c.ID, userMessage("hello"))
	require.Error(t, err)
	assert.Zero(t, p.calls, "provider must not be called after a failed commit")

	got, err := svc.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConversationTitle, got.Title)
}

func TestChatService_StartConversation(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()

	result, err := svc.StartConversation(ctx, userMessage("Plan a weekend in Lisbon"))
	require.NoError(t, err)
	require.NotNil(t, result.Conversation)
	assert.Equal(t, "Plan a weekend in Lisbon", result.Conversation.Title)
	assert.Equal(t, result.Conversation.ID, result.UserMessage.ConversationID)
	assert.Equal(t, result.Conversation.ID, result.AIMessage.ConversationID)

	conversations, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	assert.Len(t, conversations, 1)
}

func TestChatService_StartConversation_InvalidCreatesNothing(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()

	_, err := svc.StartConversation(ctx, userMessage(""))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	conversations, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestChatService_DeleteConversationWithMessages(t *testing.T) {
	svc, _, events := newTestChatService(t)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, c.ID, userMessage("first"))
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, c.ID, userMessage("second"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, c.ID))

	messages, err := svc.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	_, err = svc.GetConversation(ctx, c.ID)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	types := events.types()
	assert.Equal(t, models.EventConversationDeleted, types[len(types)-1])

	assert.NoError(t, svc.DeleteConversation(ctx, c.ID), "deleting again succeeds")
}

func TestChatService_RenameConversation(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RenameConversation(ctx, c.ID, "Renamed"))
	got, err := svc.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	var validationErr *ValidationError
	assert.ErrorAs(t, svc.RenameConversation(ctx, c.ID, " "), &validationErr)

	assert.NoError(t, svc.RenameConversation(ctx, "missing", "whatever"))
}

func TestChatService_ConcurrentTurns(t *testing.T) {
	svc, store, _ := newTestChatService(t)
	ctx := context.Background()

	c, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendMessage(ctx, c.ID, userMessage("parallel"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	messages, err := store.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 16)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
}
