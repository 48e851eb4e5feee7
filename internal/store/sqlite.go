package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ais-clarity/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection keeps the pragmas below in effect for every query.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	taxpayer_id TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS entries (
	client_id        TEXT NOT NULL REFERENCES clients(id),
	id               TEXT NOT NULL,
	position         INTEGER NOT NULL,
	section          TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	reported_amount  REAL NOT NULL,
	reporting_entity TEXT NOT NULL DEFAULT '',
	financial_year   TEXT NOT NULL DEFAULT '',
	reconciliation   TEXT,
	audit_trail      TEXT NOT NULL DEFAULT '[]',
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (client_id, id)
);

CREATE TABLE IF NOT EXISTS evidence (
	id             TEXT PRIMARY KEY,
	position       INTEGER NOT NULL,
	name           TEXT NOT NULL,
	mime_type      TEXT NOT NULL DEFAULT '',
	size_bytes     INTEGER NOT NULL DEFAULT 0,
	uploaded_at    DATETIME NOT NULL,
	extracted_text TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_client_position ON entries(client_id, position);
CREATE INDEX IF NOT EXISTS idx_evidence_position ON evidence(position);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertEntry = `
INSERT INTO entries (client_id, id, position, section, description, reported_amount,
	reporting_entity, financial_year, reconciliation, audit_trail, updated_at)
VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM entries WHERE client_id = ?), ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (client_id, id) DO UPDATE SET
	section = excluded.section,
	description = excluded.description,
	reported_amount = excluded.reported_amount,
	reporting_entity = excluded.reporting_entity,
	financial_year = excluded.financial_year,
	reconciliation = excluded.reconciliation,
	audit_trail = excluded.audit_trail,
	updated_at = excluded.updated_at`

// SaveClient upserts the client and all of its entries in one transaction.
func (s *SQLiteStore) SaveClient(ctx context.Context, c model.ClientRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save client")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO clients (id, name, taxpayer_id, position)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM clients))
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, taxpayer_id = excluded.taxpayer_id`,
		c.ID, c.Name, c.TaxpayerID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert client %s", c.ID)
	}

	for _, e := range c.Entries {
		if err := s.upsertEntry(ctx, tx, c.ID, e); err != nil {
			return err
		}
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit client %s", c.ID)
}

// SaveEntry upserts one entry of an existing client.
func (s *SQLiteStore) SaveEntry(ctx context.Context, clientID string, e model.Entry) error {
	return s.upsertEntry(ctx, s.db, clientID, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) upsertEntry(ctx context.Context, x execer, clientID string, e model.Entry) error {
	verdict, audit, err := encodeEntry(e)
	if err != nil {
		return err
	}
	var verdictCol any
	if verdict != nil {
		verdictCol = string(verdict)
	}
	_, err = x.ExecContext(ctx, sqliteUpsertEntry,
		clientID, e.ID, clientID, string(e.Section), e.Description, e.ReportedAmount,
		e.ReportingEntity, e.FinancialYear, verdictCol, string(audit), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert entry %s/%s", clientID, e.ID)
}

// LoadClients returns every client with its entries, in insertion order.
func (s *SQLiteStore) LoadClients(ctx context.Context) ([]model.ClientRecord, error) {
	clients, err := s.loadClients(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	return groupEntries(clients, entries), nil
}

func (s *SQLiteStore) loadClients(ctx context.Context) ([]model.ClientRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, taxpayer_id FROM clients ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clients")
	}
	defer rows.Close() //nolint:errcheck

	var clients []model.ClientRecord
	for rows.Next() {
		var c model.ClientRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxpayerID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		clients = append(clients, c)
	}
	return clients, eris.Wrap(rows.Err(), "sqlite: list clients iterate")
}

func (s *SQLiteStore) loadEntries(ctx context.Context) (map[string][]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, id, section, description, reported_amount, reporting_entity,
		        financial_year, reconciliation, audit_trail
		 FROM entries ORDER BY client_id, position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entries")
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string][]model.Entry)
	for rows.Next() {
		var (
			clientID string
			e        model.Entry
			section  string
			verdict  sql.NullString
			audit    string
		)
		if err := rows.Scan(&clientID, &e.ID, &section, &e.Description, &e.ReportedAmount,
			&e.ReportingEntity, &e.FinancialYear, &verdict, &audit); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		e.Section = model.Section(section)
		var vb []byte
		if verdict.Valid {
			vb = []byte(verdict.String)
		}
		if err := decodeEntry(&e, vb, []byte(audit)); err != nil {
			return nil, err
		}
		out[clientID] = append(out[clientID], e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list entries iterate")
}

// SaveEvidence upserts one evidence record.
func (s *SQLiteStore) SaveEvidence(ctx context.Context, ev model.Evidence) error {
	var text sql.NullString
	if ev.ExtractedText != nil {
		text = sql.NullString{String: *ev.ExtractedText, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evidence (id, position, name, mime_type, size_bytes, uploaded_at, extracted_text)
		 VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM evidence), ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			size_bytes = excluded.size_bytes,
			uploaded_at = excluded.uploaded_at,
			extracted_text = excluded.extracted_text`,
		ev.ID, ev.Name, ev.MimeType, ev.SizeBytes, ev.UploadedAt.UTC(), text,
	)
	return eris.Wrapf(err, "sqlite: upsert evidence %s", ev.ID)
}

// ListEvidence returns all evidence in insertion order.
func (s *SQLiteStore) ListEvidence(ctx context.Context) ([]model.Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, mime_type, size_bytes, uploaded_at, extracted_text FROM evidence ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evidence")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Evidence
	for rows.Next() {
		var ev model.Evidence
		var text sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.MimeType, &ev.SizeBytes, &ev.UploadedAt, &text); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence")
		}
		if text.Valid {
			t := text.String
			ev.ExtractedText = &t
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list evidence iterate")
}
