package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lemdata/ai-gateway/models"
	"github.com/lemdata/ai-gateway/services/providers"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// UsageRepository handles the per-user daily usage ledger
type UsageRepository interface {
	// GetDaily retrieves one user's ledger row for a date. Returns
	// ErrNotFound when the user has no usage that day.
	GetDaily(ctx context.Context, userID string, day time.Time) (*models.DailyUsage, error)

	// RecordQuery upserts the ledger row for (userID, day) and increments
	// its counters in a single atomic statement: questions asked by one,
	// cost by the given amount, and the counter of the provider that
	// served the query.
	RecordQuery(ctx context.Context, userID string, day time.Time, provider providers.ID, cost float64) error
}

// ConversationRepository handles conversation threads and their turns
type ConversationRepository interface {
	// Create inserts a new conversation
	Create(ctx context.Context, conv *models.Conversation) error

	// GetByID retrieves a conversation. Returns ErrNotFound when it
	// does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)

	// SaveTurn appends one turn to a conversation
	SaveTurn(ctx context.Context, turn *models.Turn) error

	// GetRecentTurns retrieves the newest turns of a conversation in
	// chronological order, at most limit of them.
	GetRecentTurns(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Turn, error)
}
