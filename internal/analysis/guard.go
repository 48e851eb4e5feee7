package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/ais-clarity/internal/resilience"
)

// GuardConfig controls the limits applied in front of an Analyzer.
type GuardConfig struct {
	// RequestsPerMinute caps call rate. Zero disables the limiter.
	RequestsPerMinute int
	// Timeout bounds each call. Zero means no per-call timeout.
	Timeout time.Duration
	// Breaker configures the circuit breaker. ShouldTrip is replaced.
	Breaker resilience.CircuitBreakerConfig
}

// Guard wraps an Analyzer with a rate limiter, a per-call timeout and a
// circuit breaker. It never retries.
type Guard struct {
	next    Analyzer
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// NewGuard wraps next with the limits in cfg.
func NewGuard(next Analyzer, cfg GuardConfig) *Guard {
	g := &Guard{next: next, timeout: cfg.Timeout}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	bc := cfg.Breaker
	// A caller abandoning the call says nothing about provider health.
	bc.ShouldTrip = func(err error) bool {
		return !eris.Is(err, context.Canceled)
	}
	g.breaker = resilience.NewCircuitBreaker(bc)
	return g
}

// Breaker exposes the circuit breaker for health reporting.
func (g *Guard) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

// Analyze implements Analyzer.
func (g *Guard) Analyze(ctx context.Context, req Request) ([]byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "analysis: rate limit wait")
		}
	}

	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) ([]byte, error) {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return g.next.Analyze(ctx, req)
	})
}
