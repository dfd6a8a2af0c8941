package dispatch

import (
	"github.com/google/uuid"

	"github.com/lemdata/ai-gateway/services/providers"
)

// ChatRequest represents one chat message to dispatch
type ChatRequest struct {
	// UserID identifies the requesting user for budget accounting.
	UserID string `json:"user_id"`

	// Message is the sanitized user message.
	Message string `json:"message"`

	// ConversationID continues an existing thread when set; a new
	// conversation is created otherwise.
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`

	// Preferred is an explicit provider choice, or "auto"/empty.
	Preferred string `json:"preferred,omitempty"`

	// CostThresholdOverride replaces the configured daily cost
	// threshold for this request when set.
	CostThresholdOverride *float64 `json:"cost_threshold_override,omitempty"`
}

// ChatResponse represents the dispatched completion
type ChatResponse struct {
	Text           string             `json:"text"`
	Provider       providers.ID       `json:"provider"`
	Cost           float64            `json:"cost"`
	ConversationID uuid.UUID          `json:"conversation_id"`
	Metadata       providers.Metadata `json:"metadata"`

	// FellBack is set when the selected provider failed and the
	// flagship answered instead.
	FellBack bool `json:"fell_back,omitempty"`
}
