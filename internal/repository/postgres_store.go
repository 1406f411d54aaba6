package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-backend/internal/models"
)

// PostgresStore is the durable Store. Messages reference their conversation
// through a foreign key with ON DELETE CASCADE, so a conversation delete
// removes its messages in the same statement.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	c := &models.Conversation{ID: uuid.New().String(), Title: title}

	query := `INSERT INTO conversations (id, title)
		VALUES ($1, $2) RETURNING created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query, c.ID, c.Title).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return c, nil
}

func (r *PostgresStore) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Conversation, 0)
	for rows.Next() {
		c := &models.Conversation{}
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *PostgresStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	c := &models.Conversation{}
	err := r.pool.QueryRow(ctx, `SELECT id, title, created_at, updated_at
		FROM conversations WHERE id = $1`, id).Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

func (r *PostgresStore) DeleteConversation(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM conversations WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func (r *PostgresStore) UpdateConversationTitle(ctx context.Context, id, title string) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations
		SET title = $1, updated_at = GREATEST(updated_at, clock_timestamp())
		WHERE id = $2`, title, id)
	if err != nil {
		return fmt.Errorf("failed to update conversation title: %w", err)
	}
	return nil
}

// CreateMessage inserts the message and bumps the conversation in one
// transaction. Unlike MemoryStore, an unknown conversation is a foreign key
// violation.
func (r *PostgresStore) CreateMessage(ctx context.Context, conversationID string, role models.Role, content string) (*models.Message, error) {
	m := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `INSERT INTO messages (id, conversation_id, role, content)
		VALUES ($1, $2, $3, $4) RETURNING created_at`,
		m.ID, m.ConversationID, string(m.Role), m.Content,
	).Scan(&m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE conversations
		SET updated_at = GREATEST(updated_at, $1) WHERE id = $2`, m.CreatedAt, conversationID); err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return m, nil
}

func (r *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, seq ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Message, 0)
	for rows.Next() {
		m := &models.Message{}
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = models.Role(role)
		items = append(items, m)
	}
	return items, rows.Err()
}
