package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/services/providers"
)

const (
	defaultHost  = "http://localhost:11434"
	defaultModel = "llama3.2:8b"

	defaultGenerationTimeout = 30 * time.Second
	defaultProbeTimeout      = 2 * time.Second
)

const promptPreamble = `אתה עוזר חינוכי חכם. ענה בעברית אם השאלה בעברית.`

// degradedText is returned instead of an error when the local model
// cannot answer. The caller sees a successful degraded result.
const degradedText = `מצטער, המודל המקומי לא זמין כעת. אנסה לעזור לך באמצעים אחרים.`

// Config holds the adapter settings
type Config struct {
	Host              string
	Model             string
	GenerationTimeout time.Duration
	ProbeTimeout      time.Duration
	HistoryWindow     int
}

// Adapter implements the Provider interface for a local Ollama daemon
type Adapter struct {
	config      Config
	httpClient  *http.Client
	probeClient *http.Client
	logger      *zap.Logger
}

// NewAdapter creates a new Ollama adapter
func NewAdapter(config Config, logger *zap.Logger) *Adapter {
	if config.Host == "" {
		config.Host = defaultHost
	}
	config.Host = strings.TrimRight(config.Host, "/")
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.GenerationTimeout == 0 {
		config.GenerationTimeout = defaultGenerationTimeout
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = defaultProbeTimeout
	}

	return &Adapter{
		config:      config,
		httpClient:  &http.Client{Timeout: config.GenerationTimeout},
		probeClient: &http.Client{Timeout: config.ProbeTimeout},
		logger:      logger,
	}
}

// ID returns the provider identity
func (a *Adapter) ID() providers.ID {
	return providers.Ollama
}

// Generate produces a completion via the local generate endpoint. Local
// failures never surface as errors; the adapter degrades to a canned
// apology so the conversation flow is preserved.
func (a *Adapter) Generate(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
	startTime := time.Now()

	result, err := a.generate(ctx, req)
	if err != nil {
		a.logger.Warn("ollama generation failed, degrading",
			zap.String("model", a.config.Model),
			zap.Error(err))

		return &providers.GenerateResult{
			Text: degradedText,
			Cost: 0,
			Metadata: providers.Metadata{
				Latency:  time.Since(startTime),
				Model:    a.config.Model,
				Degraded: true,
			},
		}, nil
	}

	return result, nil
}

func (a *Adapter) generate(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
	startTime := time.Now()

	body, err := json.Marshal(generateRequest{
		Model:  a.config.Model,
		Prompt: a.buildPrompt(req),
		Stream: false,
		Options: generateOptions{
			Temperature: 0.7,
			TopP:        0.9,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", httpResp.StatusCode)
	}

	var ollamaResp generateResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	text := strings.TrimSpace(ollamaResp.Response)
	if text == "" {
		return nil, fmt.Errorf("empty completion")
	}

	return &providers.GenerateResult{
		Text: text,
		Cost: 0,
		Metadata: providers.Metadata{
			Latency:          time.Since(startTime),
			Model:            a.config.Model,
			PromptTokens:     ollamaResp.PromptEvalCount,
			CompletionTokens: ollamaResp.EvalCount,
		},
	}, nil
}

// Available probes the daemon's tags endpoint. The probe is bounded by
// its own short timeout so a dead daemon cannot stall routing.
func (a *Adapter) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, a.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, a.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := a.probeClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Status returns the availability snapshot
func (a *Adapter) Status(ctx context.Context) providers.Status {
	return providers.Status{
		Available:         a.Available(ctx),
		Cost:              providers.CostFree,
		LatencyEstimateMs: 2000,
		Description:       "Ollama, free local model",
	}
}

// buildPrompt flattens the history into a plain chat transcript, which
// is what the generate endpoint expects.
func (a *Adapter) buildPrompt(req *providers.GenerateRequest) string {
	history := req.History
	if a.config.HistoryWindow > 0 && len(history) > a.config.HistoryWindow {
		history = history[len(history)-a.config.HistoryWindow:]
	}

	var sb strings.Builder
	if len(history) == 0 {
		sb.WriteString(promptPreamble)
		sb.WriteString("\n\n")
	} else {
		for _, turn := range history {
			if turn.Role == providers.TurnRoleAssistant {
				sb.WriteString("Assistant: ")
			} else {
				sb.WriteString("User: ")
			}
			sb.WriteString(turn.Content)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("User: ")
	sb.WriteString(req.Message)
	sb.WriteString("\nAssistant:")
	return sb.String()
}

// Ollama wire types

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}
