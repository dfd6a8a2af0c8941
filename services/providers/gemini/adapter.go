package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/services/pricing"
	"github.com/lemdata/ai-gateway/services/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-pro"
)

// systemInstruction steers the model toward the tutoring domain. Kept in
// Hebrew because that is the primary audience; the model mirrors the
// question language either way.
const systemInstruction = `אתה עוזר חינוכי חכם ומקצועי.
אתה מסייע לתלמידים, מורים והורים בשאלות חינוכיות בעברית.
אתה מקפיד על תשובות מדויקות, ברורות ומעודדות.
אם השאלה בעברית, תשיב בעברית. אם באנגלית, תשיב באנגלית.
היה ידידותי, סבלני ומעודד.`

// Config holds the adapter settings
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	HistoryWindow int
}

// Adapter implements the Provider interface for the Gemini API
type Adapter struct {
	config     Config
	estimator  *pricing.Estimator
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdapter creates a new Gemini adapter
func NewAdapter(config Config, estimator *pricing.Estimator, logger *zap.Logger) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Adapter{
		config:    config,
		estimator: estimator,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// ID returns the provider identity
func (a *Adapter) ID() providers.ID {
	return providers.Gemini
}

// Generate produces a completion via the generateContent endpoint
func (a *Adapter) Generate(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
	if a.config.APIKey == "" {
		return nil, providers.NewProviderError(a.ID(), providers.CodeTransport, "API key not configured", 0, nil)
	}

	startTime := time.Now()

	geminiReq := a.buildRequest(req)

	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, providers.NewProviderError(a.ID(), providers.CodeTransport, "failed to marshal request", 0, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", a.config.BaseURL, a.config.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(a.ID(), providers.CodeTransport, "failed to create request", 0, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", a.config.APIKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if isTimeoutErr(err) {
			return nil, providers.NewProviderError(a.ID(), providers.CodeTimeout, "request timed out", 0, err)
		}
		return nil, providers.NewProviderError(a.ID(), providers.CodeTransport, "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.ID(), providers.CodeTransport, "failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	latency := time.Since(startTime)

	var geminiResp generateContentResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		// Some proxy setups return the completion as plain text. Pass
		// it through rather than failing the call.
		text := strings.TrimSpace(string(respBody))
		if text == "" {
			return nil, providers.NewProviderError(a.ID(), providers.CodeMalformed, "unparseable empty response", httpResp.StatusCode, err)
		}
		a.logger.Warn("gemini returned unstructured response",
			zap.Int("body_bytes", len(respBody)))
		return &providers.GenerateResult{
			Text: text,
			Cost: a.estimator.Estimate(providers.Gemini, len(req.Message), len(text)),
			Metadata: providers.Metadata{
				Latency:     latency,
				Model:       a.config.Model,
				RawResponse: text,
			},
		}, nil
	}

	text := geminiResp.text()
	if text == "" {
		return nil, providers.NewProviderError(a.ID(), providers.CodeMalformed, "response contained no candidates", httpResp.StatusCode, nil)
	}

	return &providers.GenerateResult{
		Text: text,
		Cost: a.estimator.Estimate(providers.Gemini, len(req.Message), len(text)),
		Metadata: providers.Metadata{
			Latency:          latency,
			Model:            a.config.Model,
			PromptTokens:     geminiResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

// Available reports whether a call can be attempted. Cloud availability
// is a credential check; no network round trip is made.
func (a *Adapter) Available(_ context.Context) bool {
	return a.config.APIKey != ""
}

// Status returns the availability snapshot
func (a *Adapter) Status(ctx context.Context) providers.Status {
	return providers.Status{
		Available:         a.Available(ctx),
		Cost:              providers.CostLow,
		LatencyEstimateMs: 500,
		Description:       "Google Gemini, metered cloud model with a free tier",
	}
}

func (a *Adapter) buildRequest(req *providers.GenerateRequest) *generateContentRequest {
	history := req.History
	if a.config.HistoryWindow > 0 && len(history) > a.config.HistoryWindow {
		history = history[len(history)-a.config.HistoryWindow:]
	}

	contents := make([]content, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == providers.TurnRoleAssistant {
			role = "model"
		}
		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: turn.Content}},
		})
	}
	contents = append(contents, content{
		Role:  "user",
		Parts: []part{{Text: req.Message}},
	})

	return &generateContentRequest{
		SystemInstruction: &content{
			Parts: []part{{Text: systemInstruction}},
		},
		Contents: contents,
	}
}

func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return providers.NewProviderError(a.ID(), providers.CodeBadStatus, fmt.Sprintf("unexpected status %d", statusCode), statusCode, nil)
	}
	return providers.NewProviderError(a.ID(), providers.CodeBadStatus, errResp.Error.Message, statusCode, errors.New(errResp.Error.Status))
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Gemini wire types

type generateContentRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// text joins the parts of the first candidate
func (r *generateContentResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
