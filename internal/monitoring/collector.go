// Package monitoring watches reconciliation health and posts webhook alerts
// when failure rate, circuit state or analyst spend cross thresholds.
package monitoring

import (
	"time"

	"github.com/sells-group/ais-clarity/internal/aggregate"
	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/reconcile"
	"github.com/sells-group/ais-clarity/internal/resilience"
)

// MetricsSnapshot holds a point-in-time view of system health. Counters are
// cumulative since the process started.
type MetricsSnapshot struct {
	// Reconciliation attempts.
	ReconcileSucceeded int64   `json:"reconcile_succeeded"`
	ReconcileFailed    int64   `json:"reconcile_failed"`
	ReconcileFailRate  float64 `json:"reconcile_fail_rate"`

	// Analyst transport.
	CircuitState        string  `json:"circuit_state"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	AnalystCalls        int     `json:"analyst_calls"`
	AnalystCostUSD      float64 `json:"analyst_cost_usd"`

	// Portfolio.
	Clients        int `json:"clients"`
	PendingEntries int `json:"pending_entries"`
	RiskFlags      int `json:"risk_flags"`

	CollectedAt time.Time `json:"collected_at"`
}

// AttemptCounter reports finished reconciliation attempts.
type AttemptCounter interface {
	Stats() reconcile.Stats
}

// SpendMeter reports analyst calls and their estimated cost.
type SpendMeter interface {
	Total() (calls int, usd float64)
}

// ClientLister lists the portfolio.
type ClientLister interface {
	Clients() []model.ClientRecord
}

// Collector gathers metrics from the orchestrator, the analyst circuit
// breaker, the spend meter and the ledger. Any source may be nil.
type Collector struct {
	attempts AttemptCounter
	breaker  *resilience.CircuitBreaker
	spend    SpendMeter
	clients  ClientLister
	now      func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(attempts AttemptCounter, breaker *resilience.CircuitBreaker, spend SpendMeter, clients ClientLister) *Collector {
	return &Collector{
		attempts: attempts,
		breaker:  breaker,
		spend:    spend,
		clients:  clients,
		now:      time.Now,
	}
}

// Collect gathers a snapshot of the current metrics.
func (c *Collector) Collect() *MetricsSnapshot {
	snap := &MetricsSnapshot{
		CircuitState: resilience.CircuitClosed.String(),
		CollectedAt:  c.now().UTC(),
	}

	if c.attempts != nil {
		st := c.attempts.Stats()
		snap.ReconcileSucceeded = st.Succeeded
		snap.ReconcileFailed = st.Failed
		if finished := st.Succeeded + st.Failed; finished > 0 {
			snap.ReconcileFailRate = float64(st.Failed) / float64(finished)
		}
	}

	if c.breaker != nil {
		failures, _ := c.breaker.Counters()
		snap.ConsecutiveFailures = failures
		snap.CircuitState = c.breaker.State().String()
	}

	if c.spend != nil {
		snap.AnalystCalls, snap.AnalystCostUSD = c.spend.Total()
	}

	if c.clients != nil {
		clients := c.clients.Clients()
		snap.Clients = len(clients)
		snap.RiskFlags = aggregate.RiskTotal(clients)
		for _, cl := range clients {
			snap.PendingEntries += aggregate.Summarize(cl.Entries).Pending
		}
	}

	return snap
}
