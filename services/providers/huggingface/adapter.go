package huggingface

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/services/providers"
)

const (
	defaultBaseURL = "https://router.huggingface.co/v1"
	defaultModel   = "mistralai/Mistral-7B-Instruct-v0.3"
)

const systemPrompt = `אתה עוזר חינוכי חכם. ענה בעברית אם השאלה בעברית, ובאנגלית אם השאלה באנגלית.`

// Config holds the adapter settings
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	HistoryWindow int
}

// Adapter implements the Provider interface for the Hugging Face
// inference router, which speaks the OpenAI chat completion format.
type Adapter struct {
	config Config
	client *openai.Client
	logger *zap.Logger
}

// NewAdapter creates a new Hugging Face adapter
func NewAdapter(config Config, logger *zap.Logger) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Adapter{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}
}

// ID returns the provider identity
func (a *Adapter) ID() providers.ID {
	return providers.HuggingFace
}

// Generate produces a completion via the chat completions endpoint.
// Hugging Face calls are free tier, so the cost is always zero.
func (a *Adapter) Generate(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
	if a.config.APIKey == "" {
		return nil, providers.NewProviderError(a.ID(), providers.CodeTransport, "API key not configured", 0, nil)
	}

	startTime := time.Now()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.config.Model,
		Messages: a.buildMessages(req),
	})
	if err != nil {
		return nil, a.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(a.ID(), providers.CodeMalformed, "response contained no choices", 0, nil)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, providers.NewProviderError(a.ID(), providers.CodeMalformed, "response contained empty completion", 0, nil)
	}

	return &providers.GenerateResult{
		Text: text,
		Cost: 0,
		Metadata: providers.Metadata{
			Latency:          time.Since(startTime),
			Model:            resp.Model,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Available reports whether a call can be attempted. Like the other
// cloud provider this is a credential check, not a network probe.
func (a *Adapter) Available(_ context.Context) bool {
	return a.config.APIKey != ""
}

// Status returns the availability snapshot
func (a *Adapter) Status(ctx context.Context) providers.Status {
	return providers.Status{
		Available:         a.Available(ctx),
		Cost:              providers.CostFree,
		LatencyEstimateMs: 1000,
		Description:       "Hugging Face inference router, free tier cloud model",
	}
}

func (a *Adapter) buildMessages(req *providers.GenerateRequest) []openai.ChatCompletionMessage {
	history := req.History
	if a.config.HistoryWindow > 0 && len(history) > a.config.HistoryWindow {
		history = history[len(history)-a.config.HistoryWindow:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == providers.TurnRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})
}

func (a *Adapter) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return providers.NewProviderError(a.ID(), providers.CodeBadStatus, apiErr.Message, apiErr.HTTPStatusCode, err)
	}

	if isTimeoutErr(err) {
		return providers.NewProviderError(a.ID(), providers.CodeTimeout, "request timed out", 0, err)
	}

	return providers.NewProviderError(a.ID(), providers.CodeTransport, "request failed", 0, err)
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
