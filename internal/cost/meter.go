package cost

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Usage is the accumulated spend for one provider/model pair.
type Usage struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Meter prices each analyst call and keeps running totals. It is safe for
// concurrent use. A nil *Meter records nothing.
type Meter struct {
	calc *Calculator

	mu     sync.Mutex
	totals map[[2]string]*Usage
}

// NewMeter creates a Meter priced by calc.
func NewMeter(calc *Calculator) *Meter {
	return &Meter{calc: calc, totals: make(map[[2]string]*Usage)}
}

// RecordClaude prices and records one Claude call and returns its cost.
func (m *Meter) RecordClaude(model, entryID string, input, output, cacheWrite, cacheRead int64) float64 {
	if m == nil {
		return 0
	}
	usd := m.calc.Claude(model, input, output, cacheWrite, cacheRead)
	m.add("anthropic", model, input+cacheWrite+cacheRead, output, usd)

	zap.L().Info("cost attribution",
		zap.String("provider", "anthropic"),
		zap.String("model", model),
		zap.String("entry_id", entryID),
		zap.Int64("input_tokens", input),
		zap.Int64("output_tokens", output),
		zap.Int64("cache_write_tokens", cacheWrite),
		zap.Int64("cache_read_tokens", cacheRead),
		zap.Float64("estimated_cost_usd", usd),
	)
	return usd
}

// RecordGemini prices and records one Gemini call and returns its cost.
func (m *Meter) RecordGemini(model, entryID string, prompt, candidates, cached int64) float64 {
	if m == nil {
		return 0
	}
	usd := m.calc.Gemini(model, prompt, candidates, cached)
	m.add("gemini", model, prompt, candidates, usd)

	zap.L().Info("cost attribution",
		zap.String("provider", "gemini"),
		zap.String("model", model),
		zap.String("entry_id", entryID),
		zap.Int64("prompt_tokens", prompt),
		zap.Int64("candidate_tokens", candidates),
		zap.Int64("cached_tokens", cached),
		zap.Float64("estimated_cost_usd", usd),
	)
	return usd
}

func (m *Meter) add(provider, model string, in, out int64, usd float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := [2]string{provider, model}
	u, ok := m.totals[key]
	if !ok {
		u = &Usage{Provider: provider, Model: model}
		m.totals[key] = u
	}
	u.Calls++
	u.InputTokens += in
	u.OutputTokens += out
	u.CostUSD += usd
}

// Snapshot returns the totals sorted by provider then model.
func (m *Meter) Snapshot() []Usage {
	if m == nil {
		return []Usage{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Usage, 0, len(m.totals))
	for _, u := range m.totals {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Total returns the number of calls and the summed cost across all models.
func (m *Meter) Total() (calls int, usd float64) {
	for _, u := range m.Snapshot() {
		calls += u.Calls
		usd += u.CostUSD
	}
	return calls, usd
}
