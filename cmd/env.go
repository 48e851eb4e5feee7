package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/analysis"
	"github.com/sells-group/ais-clarity/internal/config"
	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/ledger"
	"github.com/sells-group/ais-clarity/internal/reconcile"
	"github.com/sells-group/ais-clarity/internal/resilience"
	"github.com/sells-group/ais-clarity/internal/seed"
	"github.com/sells-group/ais-clarity/internal/store"
)

// appEnv holds the store, the hydrated ledger and, for commands that call
// the analyst, the orchestrator.
type appEnv struct {
	Store  store.Store // nil for the memory driver
	Ledger *ledger.Ledger
	Guard  *analysis.Guard
	Meter  *cost.Meter
	Orch   *reconcile.Orchestrator
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates the config for mode, opens the store and loads the
// ledger. With withAnalysis it also builds the guarded analyzer and the
// orchestrator. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string, withAnalysis bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: st}

	env.Ledger, err = loadLedger(ctx, st, cfg.Seed)
	if err != nil {
		env.Close()
		return nil, err
	}

	if withAnalysis {
		env.Meter = cost.NewMeter(cost.NewCalculator(cost.DefaultRates()))
		env.Guard, err = analysis.New(ctx, cfg, env.Meter)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Orch = newOrchestrator(env.Ledger, env.Guard, st)
	}
	return env, nil
}

// initStore opens and migrates the configured store. The memory driver
// returns a nil store.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	st, err := store.Open(ctx, sc)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st == nil {
		zap.L().Info("store: memory driver, changes are not persisted")
		return nil, nil
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// loadLedger hydrates a ledger from st. When nothing is stored and seeding
// is enabled, the fixture is applied and written back to st.
func loadLedger(ctx context.Context, st store.Store, sc config.SeedConfig) (*ledger.Ledger, error) {
	l := ledger.New()
	if st != nil {
		n, err := store.Hydrate(ctx, st, l)
		if err != nil {
			return nil, err
		}
		if n > 0 || len(l.Evidence()) > 0 {
			return l, nil
		}
	}
	if !sc.OnEmpty {
		return l, nil
	}

	f, err := loadFixture(sc.Path)
	if err != nil {
		return nil, err
	}
	if err := f.Apply(l); err != nil {
		return nil, eris.Wrap(err, "apply seed")
	}
	if st != nil {
		if err := store.Import(ctx, st, f.Clients, f.Evidence); err != nil {
			return nil, eris.Wrap(err, "write seed to store")
		}
	}

	zap.L().Info("seeded ledger",
		zap.String("source", fixtureName(sc.Path)),
		zap.Int("clients", len(f.Clients)),
		zap.Int("evidence", len(f.Evidence)),
	)
	return l, nil
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.Load(path)
}

func fixtureName(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

func newOrchestrator(l *ledger.Ledger, a analysis.Analyzer, st store.Store) *reconcile.Orchestrator {
	var opts []reconcile.Option
	if st != nil {
		opts = append(opts, reconcile.WithPersister(st))
	}
	return reconcile.New(l, a, opts...)
}

// retryConfig returns the retry settings for attempts tries per entry.
func retryConfig(attempts int) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	rc.MaxAttempts = attempts
	return rc
}

func batchOptions(bc config.BatchConfig) reconcile.BatchOptions {
	return reconcile.BatchOptions{
		Concurrency: bc.MaxConcurrentEntries,
		Retry:       retryConfig(bc.RetryAttempts),
	}
}
