package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/ledger"
	"github.com/sells-group/ais-clarity/internal/model"
)

// Hydrate loads persisted evidence and clients into l and returns the
// number of clients loaded.
func Hydrate(ctx context.Context, s Store, l *ledger.Ledger) (int, error) {
	evidence, err := s.ListEvidence(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "store: hydrate evidence")
	}
	for _, ev := range evidence {
		if err := l.AddEvidence(ev); err != nil {
			return 0, eris.Wrap(err, "store: hydrate evidence")
		}
	}

	clients, err := s.LoadClients(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "store: hydrate clients")
	}
	for _, c := range clients {
		if err := l.AddClient(c); err != nil {
			return 0, eris.Wrapf(err, "store: hydrate client %s", c.ID)
		}
	}

	zap.L().Info("store: hydrated ledger",
		zap.Int("clients", len(clients)),
		zap.Int("evidence", len(evidence)),
	)
	return len(clients), nil
}

// Import writes clients and evidence to s.
func Import(ctx context.Context, s Store, clients []model.ClientRecord, evidence []model.Evidence) error {
	for _, ev := range evidence {
		if err := s.SaveEvidence(ctx, ev); err != nil {
			return err
		}
	}
	for _, c := range clients {
		if err := s.SaveClient(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
