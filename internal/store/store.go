// Package store persists clients, entries and evidence so a restarted
// service resumes with the verdicts and audit trails it already produced.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/config"
	"github.com/sells-group/ais-clarity/internal/model"
)

// Store defines the persistence interface for the ledger.
type Store interface {
	// Clients and entries
	SaveClient(ctx context.Context, c model.ClientRecord) error
	SaveEntry(ctx context.Context, clientID string, e model.Entry) error
	LoadClients(ctx context.Context) ([]model.ClientRecord, error)

	// Evidence
	SaveEvidence(ctx context.Context, ev model.Evidence) error
	ListEvidence(ctx context.Context) ([]model.Evidence, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver. The memory driver has no
// store and returns nil.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return nil, nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// encodeEntry returns the JSON columns for an entry. A nil verdict encodes
// as SQL NULL.
func encodeEntry(e model.Entry) (verdict, audit []byte, err error) {
	if e.Reconciliation != nil {
		verdict, err = json.Marshal(e.Reconciliation)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "store: marshal verdict for %s", e.ID)
		}
	}
	trail := e.AuditTrail
	if trail == nil {
		trail = []model.AuditEvent{}
	}
	audit, err = json.Marshal(trail)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "store: marshal audit trail for %s", e.ID)
	}
	return verdict, audit, nil
}

func decodeEntry(e *model.Entry, verdict, audit []byte) error {
	if len(verdict) > 0 {
		e.Reconciliation = &model.Verdict{}
		if err := json.Unmarshal(verdict, e.Reconciliation); err != nil {
			return eris.Wrapf(err, "store: unmarshal verdict for %s", e.ID)
		}
		if e.Reconciliation.EvidenceIDs == nil {
			e.Reconciliation.EvidenceIDs = []string{}
		}
	}
	if len(audit) > 0 {
		if err := json.Unmarshal(audit, &e.AuditTrail); err != nil {
			return eris.Wrapf(err, "store: unmarshal audit trail for %s", e.ID)
		}
	}
	if len(e.AuditTrail) == 0 {
		e.AuditTrail = nil
	}
	return nil
}

// groupEntries attaches entries to their clients, keeping both orders.
func groupEntries(clients []model.ClientRecord, entries map[string][]model.Entry) []model.ClientRecord {
	for i := range clients {
		clients[i].Entries = entries[clients[i].ID]
	}
	return clients
}
