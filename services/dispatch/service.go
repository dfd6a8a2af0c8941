package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/models"
	"github.com/lemdata/ai-gateway/repositories"
	"github.com/lemdata/ai-gateway/services"
	"github.com/lemdata/ai-gateway/services/providers"
	"github.com/lemdata/ai-gateway/services/routing"
	"github.com/lemdata/ai-gateway/services/usage"
)

// Service orchestrates one chat dispatch: resolve the conversation,
// select a provider, call it with at most one fallback hop to the
// flagship, persist the turns, and write the usage ledger.
type Service struct {
	router        *routing.Service
	registry      *providers.Registry
	usage         *usage.Service
	conversations repositories.ConversationRepository
	historyWindow int
	logger        *zap.Logger
}

// NewService creates a new dispatch service
func NewService(
	router *routing.Service,
	registry *providers.Registry,
	usageService *usage.Service,
	conversations repositories.ConversationRepository,
	historyWindow int,
	logger *zap.Logger,
) *Service {
	return &Service{
		router:        router,
		registry:      registry,
		usage:         usageService,
		conversations: conversations,
		historyWindow: historyWindow,
		logger:        logger,
	}
}

// Process dispatches one chat message and returns the completion
func (s *Service) Process(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, services.ErrEmptyMessage
	}
	if req.Preferred != "" && req.Preferred != providers.Auto {
		if _, err := providers.ParseID(req.Preferred); err != nil {
			return nil, services.ErrInvalidProvider.WithDetail("provider", req.Preferred)
		}
	}

	conv, history, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	selected := s.router.Select(ctx, &routing.SelectionContext{
		UserID:                req.UserID,
		Message:               req.Message,
		Preferred:             req.Preferred,
		CostThresholdOverride: req.CostThresholdOverride,
	})

	s.logger.Info("dispatching message",
		zap.String("user_id", req.UserID),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("provider", string(selected)))

	result, served, fellBack, err := s.generate(ctx, selected, &providers.GenerateRequest{
		Message: req.Message,
		History: history,
	})
	if err != nil {
		return nil, err
	}

	// Ledger first: the budget must reflect the spend even if the
	// conversation write fails afterwards.
	if err := s.usage.Record(ctx, req.UserID, served, result.Cost); err != nil {
		s.logger.Error("failed to record usage",
			zap.String("user_id", req.UserID),
			zap.Error(err))
	}

	s.saveTurns(ctx, req, conv, served, result)

	return &ChatResponse{
		Text:           result.Text,
		Provider:       served,
		Cost:           result.Cost,
		ConversationID: conv.ID,
		Metadata:       result.Metadata,
		FellBack:       fellBack,
	}, nil
}

// generate calls the selected provider, hopping to the flagship once if
// the call fails and the flagship was not already the target.
func (s *Service) generate(ctx context.Context, selected providers.ID, req *providers.GenerateRequest) (*providers.GenerateResult, providers.ID, bool, error) {
	provider, err := s.registry.Get(selected)
	if err != nil {
		return nil, "", false, services.WrapInternal("provider not registered", err)
	}

	result, primaryErr := provider.Generate(ctx, req)
	if primaryErr == nil {
		return result, selected, false, nil
	}

	if selected == providers.Gemini {
		return nil, "", false, services.ErrDispatchFailed.
			WithDetail("provider", string(selected)).
			WithDetail("cause", primaryErr.Error())
	}

	s.logger.Warn("provider failed, falling back to flagship",
		zap.String("provider", string(selected)),
		zap.Error(primaryErr))

	flagship, err := s.registry.Get(providers.Gemini)
	if err != nil || !flagship.Available(ctx) {
		return nil, "", false, services.ErrDispatchFailed.
			WithDetail("provider", string(selected)).
			WithDetail("cause", primaryErr.Error()).
			WithDetail("fallback", "flagship unavailable")
	}

	result, fallbackErr := flagship.Generate(ctx, req)
	if fallbackErr != nil {
		return nil, "", false, services.ErrDispatchFailed.
			WithDetail("provider", string(selected)).
			WithDetail("cause", primaryErr.Error()).
			WithDetail("fallback_provider", string(providers.Gemini)).
			WithDetail("fallback_cause", fallbackErr.Error())
	}

	return result, providers.Gemini, true, nil
}

// resolveConversation loads an existing thread with its recent turns or
// starts a new one titled after the message.
func (s *Service) resolveConversation(ctx context.Context, req *ChatRequest) (*models.Conversation, []providers.Turn, error) {
	if req.ConversationID != nil {
		conv, err := s.conversations.GetByID(ctx, *req.ConversationID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, nil, services.ErrConversationNotFound.
					WithDetail("conversation_id", req.ConversationID.String())
			}
			return nil, nil, services.WrapInternal("failed to load conversation", err)
		}

		turns, err := s.conversations.GetRecentTurns(ctx, conv.ID, s.historyWindow)
		if err != nil {
			return nil, nil, services.WrapInternal("failed to load history", err)
		}

		history := make([]providers.Turn, len(turns))
		for i, turn := range turns {
			role := providers.TurnRoleUser
			if turn.Role == models.RoleAssistant {
				role = providers.TurnRoleAssistant
			}
			history[i] = providers.Turn{Role: role, Content: turn.Content}
		}
		return conv, history, nil
	}

	conv := models.NewConversation(req.UserID, req.Message)
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, nil, services.WrapInternal("failed to create conversation", err)
	}
	return conv, nil, nil
}

// saveTurns persists the user message and the assistant answer. The
// completion already happened and the ledger is written, so a storage
// failure here is logged but does not fail the dispatch.
func (s *Service) saveTurns(ctx context.Context, req *ChatRequest, conv *models.Conversation, served providers.ID, result *providers.GenerateResult) {
	now := time.Now()

	userTurn := &models.Turn{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		UserID:         req.UserID,
		Role:           models.RoleUser,
		Content:        req.Message,
		CreatedAt:      now,
	}
	if err := s.conversations.SaveTurn(ctx, userTurn); err != nil {
		s.logger.Error("failed to save user turn",
			zap.String("conversation_id", conv.ID.String()),
			zap.Error(err))
		return
	}

	assistantTurn := &models.Turn{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		UserID:         req.UserID,
		Role:           models.RoleAssistant,
		Content:        result.Text,
		Provider:       string(served),
		Cost:           result.Cost,
		CreatedAt:      now.Add(time.Millisecond),
	}
	if err := s.conversations.SaveTurn(ctx, assistantTurn); err != nil {
		s.logger.Error("failed to save assistant turn",
			zap.String("conversation_id", conv.ID.String()),
			zap.Error(err))
	}
}

// Statuses probes all providers for the status endpoint
func (s *Service) Statuses(ctx context.Context) map[providers.ID]providers.Status {
	return s.router.Statuses(ctx)
}
