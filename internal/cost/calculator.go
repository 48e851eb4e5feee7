// Package cost prices analyst token usage and tracks spend per provider.
package cost

// Rates holds per-provider, per-model pricing.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of a Claude call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := perMillion(input, rate.Input)
	outCost := perMillion(output, rate.Output)
	cwCost := perMillion(cacheWrite, rate.Input*rate.CacheWriteMul)
	crCost := perMillion(cacheRead, rate.Input*rate.CacheReadMul)

	return inCost + outCost + cwCost + crCost
}

// Gemini computes the cost of a Gemini call. Prompt tokens include cached
// tokens, which are billed at the cache-read rate. Unknown models cost 0.
func (c *Calculator) Gemini(model string, prompt, candidates, cached int64) float64 {
	rate, ok := c.rates.Gemini[model]
	if !ok {
		return 0
	}

	uncached := prompt - cached
	if uncached < 0 {
		uncached = 0
	}
	return perMillion(uncached, rate.Input) +
		perMillion(cached, rate.Input*rate.CacheReadMul) +
		perMillion(candidates, rate.Output)
}

func perMillion(tokens int64, usd float64) float64 {
	return (float64(tokens) / 1e6) * usd
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.5-pro": {
				Input: 1.25, Output: 10.00,
				CacheReadMul: 0.25,
			},
			"gemini-2.5-flash": {
				Input: 0.30, Output: 2.50,
				CacheReadMul: 0.25,
			},
		},
	}
}
