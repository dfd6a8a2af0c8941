package usage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/models"
	"github.com/lemdata/ai-gateway/repositories"
	"github.com/lemdata/ai-gateway/services/providers"
)

// Service is the usage ledger client. Reads feed the routing policy and
// must never block a request, so read failures degrade to zero usage.
// Writes go through the repository's atomic upsert.
type Service struct {
	repo   repositories.UsageRepository
	logger *zap.Logger
}

// NewService creates a new usage service
func NewService(repo repositories.UsageRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// DailyCost returns the user's accumulated cost for the day. Zero when
// there is no ledger row or the read fails.
func (s *Service) DailyCost(ctx context.Context, userID string, day time.Time) float64 {
	usage, err := s.get(ctx, userID, day)
	if usage == nil || err != nil {
		return 0
	}
	return usage.CostTotal
}

// DailyQueries returns the user's query count for the day. Zero when
// there is no ledger row or the read fails.
func (s *Service) DailyQueries(ctx context.Context, userID string, day time.Time) int {
	usage, err := s.get(ctx, userID, day)
	if usage == nil || err != nil {
		return 0
	}
	return usage.QuestionsAsked
}

// Summary returns the full ledger row for the day. A missing row is not
// an error; it comes back as a zeroed row for the requested date.
func (s *Service) Summary(ctx context.Context, userID string, day time.Time) (*models.DailyUsage, error) {
	usage, err := s.repo.GetDaily(ctx, userID, day)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.DailyUsage{
				UserID: userID,
				Date:   models.UsageDate(day),
			}, nil
		}
		return nil, err
	}
	return usage, nil
}

// Record adds one served query to the user's ledger for today
func (s *Service) Record(ctx context.Context, userID string, provider providers.ID, cost float64) error {
	return s.repo.RecordQuery(ctx, userID, time.Now().UTC(), provider, cost)
}

func (s *Service) get(ctx context.Context, userID string, day time.Time) (*models.DailyUsage, error) {
	usage, err := s.repo.GetDaily(ctx, userID, day)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("usage read failed, assuming zero usage",
				zap.String("user_id", userID),
				zap.Error(err))
		}
		return nil, err
	}
	return usage, nil
}
