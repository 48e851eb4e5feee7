package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/config"
	"github.com/sells-group/ais-clarity/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertReconcileFailureRate AlertType = "reconcile_failure_rate"
	AlertCircuitOpen          AlertType = "analyst_circuit_open"
	AlertCostOverrun          AlertType = "cost_overrun"
)

// minFinished is the number of finished attempts needed before the failure
// rate is judged.
const minFinished = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.ReconcileSucceeded + snap.ReconcileFailed
	if finished >= minFinished && snap.ReconcileFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertReconcileFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Reconciliation failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished)",
				snap.ReconcileFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.ReconcileFailed, finished,
			),
			Details: map[string]any{
				"failure_rate": snap.ReconcileFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.ReconcileFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if snap.CircuitState == resilience.CircuitOpen.String() {
		alerts = append(alerts, Alert{
			Type:     AlertCircuitOpen,
			Severity: "high",
			Message: fmt.Sprintf(
				"Analyst circuit breaker is open after %d consecutive failures",
				snap.ConsecutiveFailures,
			),
			Details: map[string]any{
				"consecutive_failures": snap.ConsecutiveFailures,
			},
			Timestamp: now,
		})
	}

	if a.cfg.CostThresholdUSD > 0 && snap.AnalystCostUSD > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Analyst cost $%.2f exceeds threshold $%.2f (%d calls)",
				snap.AnalystCostUSD, a.cfg.CostThresholdUSD, snap.AnalystCalls,
			),
			Details: map[string]any{
				"cost_usd":      snap.AnalystCostUSD,
				"threshold_usd": a.cfg.CostThresholdUSD,
				"calls":         snap.AnalystCalls,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
