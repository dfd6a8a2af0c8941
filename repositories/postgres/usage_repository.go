package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/models"
	"github.com/lemdata/ai-gateway/repositories"
	"github.com/lemdata/ai-gateway/services/providers"
)

// UsageRepository implements the repositories.UsageRepository interface
type UsageRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB, logger *zap.Logger) repositories.UsageRepository {
	return &UsageRepository{
		db:     db,
		logger: logger,
	}
}

// GetDaily retrieves one user's ledger row for a date
func (r *UsageRepository) GetDaily(ctx context.Context, userID string, day time.Time) (*models.DailyUsage, error) {
	query := `
		SELECT user_id, date, questions_asked, cost_total,
		       queries_gemini, queries_huggingface, queries_ollama, updated_at
		FROM user_analytics
		WHERE user_id = $1 AND date = $2
	`

	usage := &models.DailyUsage{}
	err := r.db.QueryRowContext(ctx, query, userID, models.UsageDate(day)).Scan(
		&usage.UserID,
		&usage.Date,
		&usage.QuestionsAsked,
		&usage.CostTotal,
		&usage.QueriesGemini,
		&usage.QueriesHuggingFace,
		&usage.QueriesOllama,
		&usage.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("usage for user %s: %w", userID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get daily usage: %w", err)
	}

	return usage, nil
}

// RecordQuery upserts the ledger row and increments its counters. The
// whole update is a single INSERT ... ON CONFLICT statement so that
// concurrent queries for the same user never lose increments.
func (r *UsageRepository) RecordQuery(ctx context.Context, userID string, day time.Time, provider providers.ID, cost float64) error {
	geminiInc, huggingInc, ollamaInc := 0, 0, 0
	switch provider {
	case providers.Gemini:
		geminiInc = 1
	case providers.HuggingFace:
		huggingInc = 1
	case providers.Ollama:
		ollamaInc = 1
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}

	query := `
		INSERT INTO user_analytics (
			user_id, date, questions_asked, cost_total,
			queries_gemini, queries_huggingface, queries_ollama, updated_at
		) VALUES ($1, $2, 1, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, date) DO UPDATE SET
			questions_asked = user_analytics.questions_asked + 1,
			cost_total = user_analytics.cost_total + EXCLUDED.cost_total,
			queries_gemini = user_analytics.queries_gemini + EXCLUDED.queries_gemini,
			queries_huggingface = user_analytics.queries_huggingface + EXCLUDED.queries_huggingface,
			queries_ollama = user_analytics.queries_ollama + EXCLUDED.queries_ollama,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		userID,
		models.UsageDate(day),
		cost,
		geminiInc,
		huggingInc,
		ollamaInc,
	)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}

	r.logger.Debug("usage recorded",
		zap.String("user_id", userID),
		zap.String("provider", string(provider)),
		zap.Float64("cost", cost))
	return nil
}
