package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/services/providers"
)

type fakeProvider struct {
	id        providers.ID
	available bool
}

func (f *fakeProvider) ID() providers.ID { return f.id }

func (f *fakeProvider) Generate(_ context.Context, _ *providers.GenerateRequest) (*providers.GenerateResult, error) {
	return &providers.GenerateResult{Text: "ok"}, nil
}

func (f *fakeProvider) Available(_ context.Context) bool { return f.available }

func (f *fakeProvider) Status(ctx context.Context) providers.Status {
	return providers.Status{Available: f.available, Cost: providers.CostFree}
}

type fakeUsage struct {
	cost    float64
	queries int
}

func (f *fakeUsage) DailyCost(_ context.Context, _ string, _ time.Time) float64 { return f.cost }
func (f *fakeUsage) DailyQueries(_ context.Context, _ string, _ time.Time) int  { return f.queries }

func float64Ptr(v float64) *float64 { return &v }

func newTestService(t *testing.T, usage *fakeUsage, up map[providers.ID]bool) *Service {
	t.Helper()

	registry := providers.NewRegistry()
	for _, id := range providers.DefaultOrder() {
		err := registry.Register(&fakeProvider{id: id, available: up[id]})
		require.NoError(t, err)
	}

	return NewService(Limits{
		DailyCostThreshold: 0.10,
		FreeQueriesPerDay:  50,
	}, registry, usage, zap.NewNop())
}

func TestSelect(t *testing.T) {
	allUp := map[providers.ID]bool{
		providers.Gemini:      true,
		providers.HuggingFace: true,
		providers.Ollama:      true,
	}

	tests := []struct {
		name     string
		usage    fakeUsage
		up       map[providers.ID]bool
		sel      SelectionContext
		expected providers.ID
	}{
		{
			name:     "explicit preference honored when available",
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "hi", Preferred: "ollama"},
			expected: providers.Ollama,
		},
		{
			name: "explicit preference ignored when down",
			up: map[providers.ID]bool{
				providers.Gemini:      true,
				providers.HuggingFace: true,
			},
			sel: SelectionContext{UserID: "u1", Message: "hi", Preferred: "ollama"},
			// Falls through to the automatic path; short message goes free tier.
			expected: providers.HuggingFace,
		},
		{
			name:     "auto preference is not a provider name",
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "hi", Preferred: "auto"},
			expected: providers.HuggingFace,
		},
		{
			name:     "over cost threshold forces local when up",
			usage:    fakeUsage{cost: 0.15},
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "hi"},
			expected: providers.Ollama,
		},
		{
			name:  "over cost threshold walks default order when local is down",
			usage: fakeUsage{cost: 0.11},
			up: map[providers.ID]bool{
				providers.Gemini:      true,
				providers.HuggingFace: true,
			},
			sel:      SelectionContext{UserID: "u1", Message: "hi"},
			expected: providers.Gemini,
		},
		{
			name:     "cost threshold is inclusive",
			usage:    fakeUsage{cost: 0.10},
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "hi"},
			expected: providers.Ollama,
		},
		{
			name:     "threshold override lowers the budget gate",
			usage:    fakeUsage{cost: 0.05},
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "hi", CostThresholdOverride: float64Ptr(0.02)},
			expected: providers.Ollama,
		},
		{
			name:     "threshold override raises the budget gate",
			usage:    fakeUsage{cost: 0.15},
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "hi", CostThresholdOverride: float64Ptr(0.50)},
			expected: providers.HuggingFace,
		},
		{
			name:     "over query cap prefers local when up",
			usage:    fakeUsage{queries: 50},
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "hi"},
			expected: providers.Ollama,
		},
		{
			name:  "over query cap continues when local is down",
			usage: fakeUsage{queries: 50},
			up: map[providers.ID]bool{
				providers.Gemini:      true,
				providers.HuggingFace: true,
			},
			sel:      SelectionContext{UserID: "u1", Message: "hi"},
			expected: providers.HuggingFace,
		},
		{
			name:     "complex hebrew goes to flagship",
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "אני צריך עזרה עם אלגברה"},
			expected: providers.Gemini,
		},
		{
			name: "complex hebrew falls back to default order when flagship down",
			up: map[providers.ID]bool{
				providers.HuggingFace: true,
				providers.Ollama:      true,
			},
			sel:      SelectionContext{UserID: "u1", Message: "אני צריך עזרה עם אלגברה"},
			expected: providers.HuggingFace,
		},
		{
			name:     "simple message prefers free tier",
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "מה השעה?"},
			expected: providers.HuggingFace,
		},
		{
			name: "simple message falls back to flagship when free tier down",
			up: map[providers.ID]bool{
				providers.Gemini: true,
				providers.Ollama: true,
			},
			sel:      SelectionContext{UserID: "u1", Message: "מה השעה?"},
			expected: providers.Gemini,
		},
		{
			name:     "medium message walks default order",
			up:       allUp,
			sel:      SelectionContext{UserID: "u1", Message: "ספר לי בבקשה על ההיסטוריה של העיר ירושלים ועל האנשים שחיו בה לאורך הדורות השונים"},
			expected: providers.Gemini,
		},
		{
			name:     "default order skips down providers",
			up:       map[providers.ID]bool{providers.Ollama: true},
			sel:      SelectionContext{UserID: "u1", Message: "ספר לי בבקשה על ההיסטוריה של העיר ירושלים ועל האנשים שחיו בה לאורך הדורות השונים"},
			expected: providers.Ollama,
		},
		{
			name:     "everything down defaults to flagship",
			up:       map[providers.ID]bool{},
			sel:      SelectionContext{UserID: "u1", Message: "hi"},
			expected: providers.Gemini,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, &tt.usage, tt.up)
			got := svc.Select(context.Background(), &tt.sel)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSelect_BudgetChecksPrecedePreferenceOnlyWhenAuto(t *testing.T) {
	// An explicit, available preference wins even over a spent budget.
	svc := newTestService(t, &fakeUsage{cost: 5}, map[providers.ID]bool{
		providers.Gemini: true,
		providers.Ollama: true,
	})

	got := svc.Select(context.Background(), &SelectionContext{
		UserID:    "u1",
		Message:   "hi",
		Preferred: "gemini",
	})
	assert.Equal(t, providers.Gemini, got)
}

func TestStatuses(t *testing.T) {
	svc := newTestService(t, &fakeUsage{}, map[providers.ID]bool{
		providers.Gemini: true,
		providers.Ollama: true,
	})

	statuses := svc.Statuses(context.Background())
	assert.Len(t, statuses, 3)
	assert.True(t, statuses[providers.Gemini].Available)
	assert.False(t, statuses[providers.HuggingFace].Available)
	assert.True(t, statuses[providers.Ollama].Available)
}
