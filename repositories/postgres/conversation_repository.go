package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/models"
	"github.com/lemdata/ai-gateway/repositories"
)

// ConversationRepository implements the repositories.ConversationRepository interface
type ConversationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB, logger *zap.Logger) repositories.ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		conv.ID,
		conv.UserID,
		conv.Title,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	r.logger.Debug("conversation created",
		zap.String("id", conv.ID.String()),
		zap.String("user_id", conv.UserID))
	return nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	conv := &models.Conversation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// SaveTurn appends one turn to a conversation and touches the
// conversation's updated_at timestamp.
func (r *ConversationRepository) SaveTurn(ctx context.Context, turn *models.Turn) error {
	query := `
		INSERT INTO messages (id, conversation_id, user_id, role, content, provider, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var provider sql.NullString
	if turn.Provider != "" {
		provider = sql.NullString{String: turn.Provider, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		turn.ID,
		turn.ConversationID,
		turn.UserID,
		turn.Role,
		turn.Content,
		provider,
		turn.Cost,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	touch := `UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, touch, turn.ConversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	return nil
}

// GetRecentTurns retrieves the newest turns in chronological order
func (r *ConversationRepository) GetRecentTurns(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Turn, error) {
	query := `
		SELECT id, conversation_id, user_id, role, content, provider, cost, created_at
		FROM (
			SELECT id, conversation_id, user_id, role, content, provider, cost, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []*models.Turn
	for rows.Next() {
		turn := &models.Turn{}
		var provider sql.NullString
		err := rows.Scan(
			&turn.ID,
			&turn.ConversationID,
			&turn.UserID,
			&turn.Role,
			&turn.Content,
			&provider,
			&turn.Cost,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Provider = provider.String
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turn rows: %w", err)
	}

	return turns, nil
}
