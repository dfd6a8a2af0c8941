package providers

import (
	"context"
	"fmt"
	"time"
)

// ID identifies one generation backend. The set is closed; providers are
// never created or destroyed at runtime.
type ID string

const (
	// Gemini is the flagship metered cloud provider.
	Gemini ID = "gemini"

	// HuggingFace is the free-tier cloud provider.
	HuggingFace ID = "huggingface"

	// Ollama is the free local provider.
	Ollama ID = "ollama"
)

// Auto is the sentinel meaning "no explicit provider preference".
const Auto = "auto"

// ParseID validates a provider name from external input
func ParseID(s string) (ID, error) {
	switch ID(s) {
	case Gemini, HuggingFace, Ollama:
		return ID(s), nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// DefaultOrder is the fallback probe order used when no other rule applies.
func DefaultOrder() []ID {
	return []ID{Gemini, HuggingFace, Ollama}
}

// CostClass is a coarse price band reported in provider status
type CostClass string

const (
	CostFree   CostClass = "free"
	CostLow    CostClass = "low"
	CostMedium CostClass = "medium"
	CostHigh   CostClass = "high"
)

// Status is an ephemeral snapshot of one provider, valid only for the
// probe call that produced it. Never cached or persisted.
type Status struct {
	Available         bool      `json:"available"`
	Cost              CostClass `json:"cost"`
	LatencyEstimateMs int       `json:"latency_ms"`
	Description       string    `json:"description"`
}

// Turn is one prior message of the conversation, tagged user/assistant
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// GenerateRequest carries one message plus its truncated history to an adapter
type GenerateRequest struct {
	// Message is the new user message.
	Message string

	// History holds the prior turns, oldest first. Adapters truncate it to
	// their history window before sending.
	History []Turn
}

// Metadata carries per-call diagnostics back to the dispatcher
type Metadata struct {
	// Latency is the wall-clock duration of the provider call.
	Latency time.Duration `json:"latency"`

	// Model is the concrete model that answered.
	Model string `json:"model"`

	// RawResponse preserves the unparsed provider output when structured
	// parsing failed and the text was returned verbatim.
	RawResponse string `json:"raw_response,omitempty"`

	// Degraded is set when the provider returned its documented
	// degraded-mode text instead of a real completion.
	Degraded bool `json:"degraded,omitempty"`

	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

// GenerateResult is the uniform adapter output
type GenerateResult struct {
	Text     string
	Cost     float64
	Metadata Metadata
}

// Provider is the uniform contract implemented by each backend adapter
type Provider interface {
	// ID returns the provider identity.
	ID() ID

	// Generate produces a completion for the message and history.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// Available reports whether the provider can currently serve a call.
	// It never returns an error; any probe failure reads as false.
	Available(ctx context.Context) bool

	// Status returns an ephemeral availability/cost/latency snapshot.
	Status(ctx context.Context) Status
}

// Error codes attached to ProviderError
const (
	CodeTimeout   = "TIMEOUT"
	CodeTransport = "TRANSPORT_ERROR"
	CodeMalformed = "MALFORMED_RESPONSE"
	CodeBadStatus = "BAD_STATUS"
)

// ProviderError represents a failed provider call
type ProviderError struct {
	// Provider that generated the error
	Provider ID

	// Code classifies the failure
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider ID, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// IsTimeout reports whether err is a provider timeout
func IsTimeout(err error) bool {
	if provErr, ok := err.(*ProviderError); ok {
		return provErr.Code == CodeTimeout
	}
	return false
}
