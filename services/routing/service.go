package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/services/providers"
)

// UsageReader supplies the per-user daily ledger figures the policy
// needs. A read failure must not block routing; implementations report
// zero usage on error.
type UsageReader interface {
	DailyCost(ctx context.Context, userID string, day time.Time) float64
	DailyQueries(ctx context.Context, userID string, day time.Time) int
}

// Limits holds the budget thresholds the policy enforces
type Limits struct {
	// DailyCostThreshold in USD; at or above it, routing is forced local.
	DailyCostThreshold float64

	// FreeQueriesPerDay; at or above it, the local provider is preferred
	// when it is up.
	FreeQueriesPerDay int
}

// SelectionContext carries the inputs of one routing decision
type SelectionContext struct {
	UserID    string
	Message   string
	Preferred string // provider name or "auto"; empty means auto

	// CostThresholdOverride replaces the configured daily cost
	// threshold for this request when set.
	CostThresholdOverride *float64
}

// Service selects the provider for each incoming message. It balances
// the user's remaining budget against message complexity, probing
// availability as it goes. Probe results are never cached; every
// decision sees the current state.
type Service struct {
	limits   Limits
	registry *providers.Registry
	usage    UsageReader
	logger   *zap.Logger
}

// NewService creates a new routing service
func NewService(limits Limits, registry *providers.Registry, usage UsageReader, logger *zap.Logger) *Service {
	return &Service{
		limits:   limits,
		registry: registry,
		usage:    usage,
		logger:   logger,
	}
}

// Select picks the provider for the message. It always returns a
// provider; when every probe fails it falls through to the flagship and
// lets dispatch surface the failure.
func (s *Service) Select(ctx context.Context, sel *SelectionContext) providers.ID {
	// Explicit preference wins when the provider is up.
	if sel.Preferred != "" && sel.Preferred != providers.Auto {
		if id, err := providers.ParseID(sel.Preferred); err == nil {
			if s.registry.Available(ctx, id) {
				return id
			}
			s.logger.Info("preferred provider unavailable, selecting automatically",
				zap.String("user_id", sel.UserID),
				zap.String("preferred", sel.Preferred))
		}
	}

	today := time.Now().UTC()
	dailyCost := s.usage.DailyCost(ctx, sel.UserID, today)
	dailyQueries := s.usage.DailyQueries(ctx, sel.UserID, today)

	costThreshold := s.limits.DailyCostThreshold
	if sel.CostThresholdOverride != nil {
		costThreshold = *sel.CostThresholdOverride
	}

	// Over budget: force the local model when it answers its probe. A
	// dead local daemon must not trap the user in degraded mode, so the
	// decision skips straight to the default order instead.
	if dailyCost >= costThreshold {
		if s.registry.Available(ctx, providers.Ollama) {
			s.logger.Info("user over daily cost threshold, forcing local model",
				zap.String("user_id", sel.UserID),
				zap.Float64("daily_cost", dailyCost))
			return providers.Ollama
		}
		s.logger.Warn("user over daily cost threshold but local model is down, walking default order",
			zap.String("user_id", sel.UserID),
			zap.Float64("daily_cost", dailyCost))
		return s.firstAvailable(ctx, sel.UserID)
	}

	// Over the query cap: prefer local, but only when it responds.
	if dailyQueries >= s.limits.FreeQueriesPerDay {
		if s.registry.Available(ctx, providers.Ollama) {
			s.logger.Info("user over free query cap, using local model",
				zap.String("user_id", sel.UserID),
				zap.Int("daily_queries", dailyQueries))
			return providers.Ollama
		}
	}

	profile := ProfileMessage(sel.Message)

	// Complex Hebrew questions go to the strongest model.
	if profile.IsHebrew && profile.IsComplex {
		if s.registry.Available(ctx, providers.Gemini) {
			return providers.Gemini
		}
	}

	// Simple questions go to the free options first.
	if profile.IsSimple {
		if s.registry.Available(ctx, providers.HuggingFace) {
			return providers.HuggingFace
		}
		if s.registry.Available(ctx, providers.Gemini) {
			return providers.Gemini
		}
	}

	// Everything else walks the default order.
	return s.firstAvailable(ctx, sel.UserID)
}

// firstAvailable walks the default order and returns the first provider
// that answers its probe. When nothing answers it returns the flagship
// anyway and lets the call itself fail with a real error.
func (s *Service) firstAvailable(ctx context.Context, userID string) providers.ID {
	for _, id := range providers.DefaultOrder() {
		if s.registry.Available(ctx, id) {
			return id
		}
	}

	s.logger.Warn("no provider answered its probe, defaulting to flagship",
		zap.String("user_id", userID))
	return providers.Gemini
}

// Statuses probes every provider and returns their snapshots
func (s *Service) Statuses(ctx context.Context) map[providers.ID]providers.Status {
	return s.registry.Statuses(ctx)
}
