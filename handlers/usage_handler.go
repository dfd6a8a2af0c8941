package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/models"
	"github.com/lemdata/ai-gateway/services"
	"github.com/lemdata/ai-gateway/utils"
)

// UsageService defines the ledger operations the usage handler depends on
type UsageService interface {
	Summary(ctx context.Context, userID string, day time.Time) (*models.DailyUsage, error)
}

// UsageHandler handles usage ledger HTTP requests
type UsageHandler struct {
	service UsageService
	logger  *zap.Logger
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(service UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		service: service,
		logger:  logger,
	}
}

// HandleDailyUsage handles GET /api/v1/usage/{userID}.
// Returns today's ledger row for the user; a user with no usage today
// gets a zeroed row, not a 404.
func (h *UsageHandler) HandleDailyUsage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		_ = utils.WriteBadRequest(w, "user ID is required", nil)
		return
	}

	summary, err := h.service.Summary(r.Context(), userID, time.Now().UTC())
	if err != nil {
		h.logger.Error("failed to read usage summary",
			zap.String("user_id", userID),
			zap.Error(err))
		HandleServiceError(w, services.WrapInternal("failed to read usage", err), h.logger)
		return
	}

	if err := utils.WriteOK(w, summary); err != nil {
		h.logger.Error("failed to write usage response", zap.Error(err))
	}
}
