package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lemdata/ai-gateway/services/providers"
)

func TestEstimate(t *testing.T) {
	estimator := NewEstimator(DefaultTable())

	tests := []struct {
		name      string
		provider  providers.ID
		inputLen  int
		outputLen int
		expected  float64
	}{
		{
			name:      "gemini short message stays in free budget",
			provider:  providers.Gemini,
			inputLen:  100,
			outputLen: 200,
			expected:  0,
		},
		{
			name:      "gemini above free budget is metered",
			provider:  providers.Gemini,
			inputLen:  4000,
			outputLen: 4000,
			// 1000 + 1000 tokens at 0.00025 per 1K
			expected: 0.0005,
		},
		{
			name:      "gemini unknown output assumes half the input tokens",
			provider:  providers.Gemini,
			inputLen:  4000,
			outputLen: -1,
			// 1000 + 500 tokens
			expected: 0.000375,
		},
		{
			name:      "huggingface is always free",
			provider:  providers.HuggingFace,
			inputLen:  100000,
			outputLen: 100000,
			expected:  0,
		},
		{
			name:      "ollama is always free",
			provider:  providers.Ollama,
			inputLen:  100000,
			outputLen: 100000,
			expected:  0,
		},
		{
			name:      "empty input costs nothing",
			provider:  providers.Gemini,
			inputLen:  0,
			outputLen: 0,
			expected:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimator.Estimate(tt.provider, tt.inputLen, tt.outputLen)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestEstimateMonotonicInOutputLength(t *testing.T) {
	estimator := NewEstimator(DefaultTable())

	// For a fixed input, a longer output can never be cheaper.
	inputLen := 6000
	prev := estimator.Estimate(providers.Gemini, inputLen, 0)
	for outputLen := 100; outputLen <= 20000; outputLen += 100 {
		cost := estimator.Estimate(providers.Gemini, inputLen, outputLen)
		assert.GreaterOrEqual(t, cost, prev, "outputLen=%d", outputLen)
		prev = cost
	}
}

func TestTokensFor(t *testing.T) {
	tests := []struct {
		chars    int
		expected int
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{200, 50},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tokensFor(tt.chars), "chars=%d", tt.chars)
	}
}
