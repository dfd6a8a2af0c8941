package pricing

import (
	"github.com/lemdata/ai-gateway/services/providers"
)

// charsPerToken is the rough token approximation used across providers.
const charsPerToken = 4

// Table holds the externally configured pricing parameters
type Table struct {
	// GeminiRatePer1KTokens is the metered rate once the free token
	// budget is spent.
	GeminiRatePer1KTokens float64

	// GeminiFreeTokenBudget is the total token count under which a
	// gemini call costs nothing.
	GeminiFreeTokenBudget int
}

// DefaultTable returns the pricing used when nothing is configured
func DefaultTable() Table {
	return Table{
		GeminiRatePer1KTokens: 0.00025,
		GeminiFreeTokenBudget: 1000,
	}
}

// Estimator computes per-call costs from message lengths. It is a pure
// function of its inputs; it performs no I/O and holds no mutable state.
type Estimator struct {
	table Table
}

// NewEstimator creates an estimator over the given pricing table
func NewEstimator(table Table) *Estimator {
	return &Estimator{table: table}
}

// Estimate returns the cost of one call to provider for the given input
// and output lengths in characters. A negative outputLen means the output
// length is unknown; output tokens are then assumed to be half the input
// tokens. The result is always >= 0.
func (e *Estimator) Estimate(provider providers.ID, inputLen, outputLen int) float64 {
	inputTokens := tokensFor(inputLen)

	var outputTokens float64
	if outputLen < 0 {
		outputTokens = float64(inputTokens) / 2
	} else {
		outputTokens = float64(tokensFor(outputLen))
	}

	totalTokens := float64(inputTokens) + outputTokens

	switch provider {
	case providers.Gemini:
		if totalTokens < float64(e.table.GeminiFreeTokenBudget) {
			return 0
		}
		return totalTokens / 1000 * e.table.GeminiRatePer1KTokens

	case providers.HuggingFace, providers.Ollama:
		return 0

	default:
		return 0
	}
}

// tokensFor approximates the token count of n characters, rounding up.
func tokensFor(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}
