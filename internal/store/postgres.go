package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/db"
	"github.com/sells-group/ais-clarity/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, maxConns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	taxpayer_id TEXT NOT NULL DEFAULT '',
	position    BIGSERIAL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entries (
	client_id        TEXT NOT NULL REFERENCES clients(id),
	id               TEXT NOT NULL,
	position         INTEGER NOT NULL DEFAULT 0,
	section          TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	reported_amount  DOUBLE PRECISION NOT NULL,
	reporting_entity TEXT NOT NULL DEFAULT '',
	financial_year   TEXT NOT NULL DEFAULT '',
	reconciliation   JSONB,
	audit_trail      JSONB NOT NULL DEFAULT '[]',
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (client_id, id)
);

CREATE TABLE IF NOT EXISTS evidence (
	id             TEXT PRIMARY KEY,
	position       BIGSERIAL,
	name           TEXT NOT NULL,
	mime_type      TEXT NOT NULL DEFAULT '',
	size_bytes     BIGINT NOT NULL DEFAULT 0,
	uploaded_at    TIMESTAMPTZ NOT NULL,
	extracted_text TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_client_position ON entries(client_id, position);
`

// entryColumns are written by SaveClient's bulk upsert. position is only
// set on insert so re-saving a client never reorders its entries.
var entryColumns = []string{
	"client_id", "id", "position", "section", "description", "reported_amount",
	"reporting_entity", "financial_year", "reconciliation", "audit_trail", "updated_at",
}

var entryUpsert = db.UpsertConfig{
	Table:        "entries",
	Columns:      entryColumns,
	ConflictKeys: []string{"client_id", "id"},
	UpdateCols: []string{
		"section", "description", "reported_amount", "reporting_entity",
		"financial_year", "reconciliation", "audit_trail", "updated_at",
	},
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveClient upserts the client row and bulk upserts its entries in one
// transaction.
func (s *PostgresStore) SaveClient(ctx context.Context, c model.ClientRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save client")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO clients (id, name, taxpayer_id) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, taxpayer_id = EXCLUDED.taxpayer_id`,
		c.ID, c.Name, c.TaxpayerID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert client %s", c.ID)
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(c.Entries))
	for i, e := range c.Entries {
		verdict, audit, err := encodeEntry(e)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			c.ID, e.ID, int32(i), string(e.Section), e.Description, e.ReportedAmount,
			e.ReportingEntity, e.FinancialYear, nullJSON(verdict), string(audit), now,
		})
	}
	if _, err := db.UpsertTx(ctx, tx, entryUpsert, rows); err != nil {
		return eris.Wrapf(err, "postgres: upsert entries for %s", c.ID)
	}

	return eris.Wrapf(tx.Commit(ctx), "postgres: commit client %s", c.ID)
}

// SaveEntry upserts one entry of an existing client.
func (s *PostgresStore) SaveEntry(ctx context.Context, clientID string, e model.Entry) error {
	verdict, audit, err := encodeEntry(e)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO entries (client_id, id, position, section, description, reported_amount,
			reporting_entity, financial_year, reconciliation, audit_trail, updated_at)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(position), -1) + 1 FROM entries WHERE client_id = $1),
			$3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (client_id, id) DO UPDATE SET
			section = EXCLUDED.section,
			description = EXCLUDED.description,
			reported_amount = EXCLUDED.reported_amount,
			reporting_entity = EXCLUDED.reporting_entity,
			financial_year = EXCLUDED.financial_year,
			reconciliation = EXCLUDED.reconciliation,
			audit_trail = EXCLUDED.audit_trail,
			updated_at = EXCLUDED.updated_at`,
		clientID, e.ID, string(e.Section), e.Description, e.ReportedAmount,
		e.ReportingEntity, e.FinancialYear, nullJSON(verdict), string(audit), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert entry %s/%s", clientID, e.ID)
}

// LoadClients returns every client with its entries, in insertion order.
func (s *PostgresStore) LoadClients(ctx context.Context) ([]model.ClientRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, taxpayer_id FROM clients ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clients")
	}
	clients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ClientRecord, error) {
		var c model.ClientRecord
		err := row.Scan(&c.ID, &c.Name, &c.TaxpayerID)
		return c, err
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan clients")
	}

	rows, err = s.pool.Query(ctx,
		`SELECT client_id, id, section, description, reported_amount, reporting_entity,
		        financial_year, reconciliation, audit_trail
		 FROM entries ORDER BY client_id, position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entries")
	}
	defer rows.Close()

	entries := make(map[string][]model.Entry)
	for rows.Next() {
		var (
			clientID string
			e        model.Entry
			section  string
			verdict  []byte
			audit    []byte
		)
		if err := rows.Scan(&clientID, &e.ID, &section, &e.Description, &e.ReportedAmount,
			&e.ReportingEntity, &e.FinancialYear, &verdict, &audit); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		e.Section = model.Section(section)
		if err := decodeEntry(&e, verdict, audit); err != nil {
			return nil, err
		}
		entries[clientID] = append(entries[clientID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list entries iterate")
	}
	return groupEntries(clients, entries), nil
}

// SaveEvidence upserts one evidence record.
func (s *PostgresStore) SaveEvidence(ctx context.Context, ev model.Evidence) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO evidence (id, name, mime_type, size_bytes, uploaded_at, extracted_text)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			mime_type = EXCLUDED.mime_type,
			size_bytes = EXCLUDED.size_bytes,
			uploaded_at = EXCLUDED.uploaded_at,
			extracted_text = EXCLUDED.extracted_text`,
		ev.ID, ev.Name, ev.MimeType, ev.SizeBytes, ev.UploadedAt.UTC(), ev.ExtractedText,
	)
	return eris.Wrapf(err, "postgres: upsert evidence %s", ev.ID)
}

// ListEvidence returns all evidence in insertion order.
func (s *PostgresStore) ListEvidence(ctx context.Context) ([]model.Evidence, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, mime_type, size_bytes, uploaded_at, extracted_text FROM evidence ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evidence")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Evidence, error) {
		var ev model.Evidence
		err := row.Scan(&ev.ID, &ev.Name, &ev.MimeType, &ev.SizeBytes, &ev.UploadedAt, &ev.ExtractedText)
		return ev, err
	})
	return out, eris.Wrap(err, "postgres: scan evidence")
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
