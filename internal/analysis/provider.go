package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/config"
	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/resilience"
	"github.com/sells-group/ais-clarity/pkg/anthropic"
	"github.com/sells-group/ais-clarity/pkg/gemini"
)

// New builds the configured provider's analyzer wrapped in a Guard. Token
// usage is priced and recorded on meter, which may be nil.
func New(ctx context.Context, cfg *config.Config, meter *cost.Meter) (*Guard, error) {
	var inner Analyzer
	switch cfg.Analysis.Provider {
	case "gemini":
		var opts []gemini.Option
		if cfg.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
		}
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, opts...)
		if err != nil {
			return nil, eris.Wrap(err, "analysis: gemini client")
		}
		inner = NewGeminiAnalyzer(client, cfg.Gemini.Model, cfg.Gemini.MaxTokens, meter)
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("analysis: anthropic key is required")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key)
		inner = NewClaudeAnalyzer(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.Anthropic.CacheTTL, meter)
	default:
		return nil, eris.Errorf("analysis: unknown provider %q", cfg.Analysis.Provider)
	}

	breaker := resilience.DefaultCircuitBreakerConfig()
	if cfg.Analysis.CircuitFailureThreshold > 0 {
		breaker.FailureThreshold = cfg.Analysis.CircuitFailureThreshold
	}
	if cfg.Analysis.CircuitResetSecs > 0 {
		breaker.ResetTimeout = time.Duration(cfg.Analysis.CircuitResetSecs) * time.Second
	}
	breaker.OnStateChange = resilience.StateLogger(cfg.Analysis.Provider)

	return NewGuard(inner, GuardConfig{
		RequestsPerMinute: cfg.Analysis.RequestsPerMinute,
		Timeout:           time.Duration(cfg.Analysis.TimeoutSecs) * time.Second,
		Breaker:           breaker,
	}), nil
}
