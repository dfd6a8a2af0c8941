package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/middleware"
	"github.com/lemdata/ai-gateway/services/dispatch"
	"github.com/lemdata/ai-gateway/utils"
)

// ChatRequest represents the chat endpoint request body
type ChatRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	Message        string `json:"message" validate:"required,max=2000"`
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,uuid"`
	Provider       string `json:"provider,omitempty" validate:"omitempty,oneof=gemini huggingface ollama auto"`
}

// ChatService defines the dispatch operations the chat handler depends on
type ChatService interface {
	Process(ctx context.Context, req *dispatch.ChatRequest) (*dispatch.ChatResponse, error)
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /api/v1/chat
// Validation and sanitization only; all dispatch logic lives in the service.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var chatReq ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&chatReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	serviceReq := &dispatch.ChatRequest{
		UserID:    chatReq.UserID,
		Message:   utils.SanitizeMessage(chatReq.Message),
		Preferred: chatReq.Provider,
	}
	if chatReq.ConversationID != "" {
		convID, err := uuid.Parse(chatReq.ConversationID)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid conversation ID", nil)
			return
		}
		serviceReq.ConversationID = &convID
	}

	h.logger.Debug("processing chat request",
		zap.String("request_id", requestID),
		zap.String("user_id", chatReq.UserID),
		zap.String("preferred", chatReq.Provider))

	result, err := h.service.Process(middleware.WithUserID(ctx, chatReq.UserID), serviceReq)
	if err != nil {
		h.logger.Error("failed to process chat request",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("chat request dispatched",
		zap.String("request_id", requestID),
		zap.String("provider", string(result.Provider)),
		zap.String("conversation_id", result.ConversationID.String()),
		zap.Float64("cost", result.Cost),
		zap.Bool("fell_back", result.FellBack))

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
