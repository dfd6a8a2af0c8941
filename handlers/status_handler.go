package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/services/providers"
	"github.com/lemdata/ai-gateway/utils"
)

// StatusService defines the provider status operations the handler depends on
type StatusService interface {
	Statuses(ctx context.Context) map[providers.ID]providers.Status
}

// StatusHandler handles provider status HTTP requests
type StatusHandler struct {
	service StatusService
	logger  *zap.Logger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(service StatusService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		service: service,
		logger:  logger,
	}
}

// HandleModelStatus handles GET /api/v1/models/status.
// Providers are probed live on every call.
func (h *StatusHandler) HandleModelStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.service.Statuses(r.Context())

	if err := utils.WriteOK(w, statuses); err != nil {
		h.logger.Error("failed to write status response", zap.Error(err))
	}
}
