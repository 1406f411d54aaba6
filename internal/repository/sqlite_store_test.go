package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/database"
	"chat-backend/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	db, err := database.NewSQLiteDB(path)
	require.NoError(t, err)
	s := NewSQLiteStore(db)

	c, err := s.CreateConversation(ctx, "durable")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, c.ID, models.RoleUser, "remember me")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = database.NewSQLiteDB(path)
	require.NoError(t, err)
	defer db.Close()
	s = NewSQLiteStore(db)

	got, err := s.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Title)

	messages, err := s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "remember me", messages[0].Content)
	assert.Equal(t, models.RoleUser, messages[0].Role)
}

func TestSQLiteStore_RejectsMessageForUnknownConversation(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.CreateMessage(context.Background(), "ghost", models.RoleUser, "hello?")
	assert.Error(t, err)
}
