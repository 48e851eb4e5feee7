package reconcile

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/resilience"
)

// Outcome is the result of one entry in a batch run.
type Outcome struct {
	EntryID string
	Verdict *model.Verdict
	Err     error
}

// BatchOptions controls ReconcilePending.
type BatchOptions struct {
	// Concurrency caps simultaneous analyst calls. Values below 1 mean 1.
	Concurrency int
	// Retry, when MaxAttempts > 1, retries transient analyst failures.
	Retry resilience.RetryConfig
}

// ReconcileWithRetry runs Reconcile and retries only failures where the
// analyst was transiently unreachable. Contract violations are never retried.
// A verdict that was merged but not persisted is returned with its Persist
// error.
func (o *Orchestrator) ReconcileWithRetry(ctx context.Context, clientID, entryID string, cfg resilience.RetryConfig) (*model.Verdict, error) {
	if cfg.MaxAttempts <= 1 {
		return o.Reconcile(ctx, clientID, entryID)
	}
	cfg.ShouldRetry = IsRetryable
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(clientID, entryID)
	}
	var merged *model.Verdict
	v, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*model.Verdict, error) {
		v, err := o.Reconcile(ctx, clientID, entryID)
		merged = v
		return v, err
	})
	if err != nil && KindOf(err) == KindPersist {
		return merged, err
	}
	return v, err
}

// ReconcilePending reconciles every entry of the client that has no
// verdict yet. Outcomes are returned in entry order. A failed entry never
// aborts the rest of the batch.
func (o *Orchestrator) ReconcilePending(ctx context.Context, clientID string, opts BatchOptions) ([]Outcome, error) {
	client, err := o.store.Client(clientID)
	if err != nil {
		return nil, newError(KindEntryNotFound, clientID, "", err)
	}

	var pending []string
	for _, e := range client.Entries {
		if e.Reconciliation == nil {
			pending = append(pending, e.ID)
		}
	}

	outcomes := make([]Outcome, len(pending))
	if len(pending) == 0 {
		return outcomes, nil
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var succeeded, failed atomic.Int64
	for i, entryID := range pending {
		g.Go(func() error {
			v, err := o.ReconcileWithRetry(gctx, clientID, entryID, opts.Retry)
			outcomes[i] = Outcome{EntryID: entryID, Verdict: v, Err: err}
			if err != nil {
				failed.Add(1)
				zap.L().Warn("reconcile: batch entry failed",
					zap.String("client_id", clientID),
					zap.String("entry_id", entryID),
					zap.Stringer("kind", KindOf(err)),
					zap.String("class", resilience.ClassifyError(err)),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("reconcile: batch complete",
		zap.String("client_id", clientID),
		zap.Int("pending", len(pending)),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return outcomes, nil
}
