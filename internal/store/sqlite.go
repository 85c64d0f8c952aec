package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/carebridge/leadsync-cli/internal/model"
)

// SQLiteStore implements Store on a local file, for single-user runs
// without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// modernc's driver is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                         INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id                    TEXT NOT NULL UNIQUE,
	name                       TEXT,
	address                    TEXT,
	phone                      TEXT,
	city                       TEXT,
	website                    TEXT,
	source                     TEXT NOT NULL DEFAULT 'dossier_pipeline',
	score                      INTEGER NOT NULL DEFAULT 0,
	priority                   TEXT,
	overall_priority           INTEGER,
	independence_score         INTEGER,
	contactability_score       INTEGER,
	pharma_fit_score           INTEGER,
	partnership_openness_score INTEGER,
	capacity_score             INTEGER,
	sales_brief                TEXT,
	decision_makers            TEXT NOT NULL DEFAULT '[]',
	services_offered           TEXT NOT NULL DEFAULT '[]',
	talking_points             TEXT NOT NULL DEFAULT '[]',
	resident_populations       TEXT NOT NULL DEFAULT '[]',
	medication_signals         TEXT NOT NULL DEFAULT '[]',
	partnerships               TEXT NOT NULL DEFAULT '[]',
	next_step                  TEXT,
	contact_name               TEXT,
	contact_email              TEXT,
	contact_role               TEXT,
	languages_supported        TEXT NOT NULL DEFAULT '[]',
	chinese_rep_candidate      INTEGER NOT NULL DEFAULT 0,
	chinese_rep_confidence     TEXT NOT NULL DEFAULT 'none',
	chinese_rep_reasons        TEXT NOT NULL DEFAULT '[]',
	lat                        REAL,
	lon                        REAL,
	created_at                 TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at                 TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_leads_priority ON leads(priority);
CREATE INDEX IF NOT EXISTS idx_leads_rep_candidate ON leads(chinese_rep_candidate);

CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	processed    INTEGER NOT NULL DEFAULT 0,
	updated      INTEGER NOT NULL DEFAULT 0,
	errored      INTEGER NOT NULL DEFAULT 0
);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close closes the database file.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var sqliteUpsertLeadSQL = buildSQLiteUpsertLeadSQL()

func buildSQLiteUpsertLeadSQL() string {
	placeholders := make([]string, len(leadColumns))
	updates := make([]string, 0, len(leadColumns))
	for i, col := range leadColumns {
		placeholders[i] = "?"
		if col != "lead_id" {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	return fmt.Sprintf(
		`INSERT INTO leads (%s) VALUES (%s) ON CONFLICT (lead_id) DO UPDATE SET %s, updated_at = CURRENT_TIMESTAMP`,
		strings.Join(leadColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// UpsertLead inserts or replaces a row keyed by lead_id.
func (s *SQLiteStore) UpsertLead(ctx context.Context, row *model.LeadRow) error {
	values, err := leadValues(row)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteUpsertLeadSQL, values...); err != nil {
		return eris.Wrapf(err, "sqlite: upsert lead %s", row.LeadID)
	}
	return nil
}

// UpdateLeadFields patches individual columns of one row.
func (s *SQLiteStore) UpdateLeadFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableLeadColumns[col] {
			return eris.Errorf("sqlite: column %s is not updatable", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = col + " = ?"
		args = append(args, fields[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE leads SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		strings.Join(sets, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: lead %d not found", id)
	}
	return nil
}

// ListLeads bulk-reads lead rows, oldest id first.
func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRow, error) {
	query := "SELECT id, " + strings.Join(leadColumns, ", ") + " FROM leads"
	if filter.CandidatesOnly {
		query += " WHERE chinese_rep_candidate = 1"
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.LeadRow
	for rows.Next() {
		var (
			row  model.LeadRow
			dms  []byte
			svcs []byte
			tps  []byte
			pops []byte
			meds []byte
			pts  []byte
			next []byte
			lang []byte
			rsns []byte
		)
		err := rows.Scan(
			&row.ID,
			&row.LeadID, &row.Name, &row.Address, &row.Phone, &row.City, &row.Website, &row.Source,
			&row.Score, &row.Priority,
			&row.OverallPriority, &row.IndependenceScore, &row.ContactabilityScore,
			&row.PharmaFitScore, &row.PartnershipOpennessScore, &row.CapacityScore,
			&row.SalesBrief,
			&dms, &svcs, &tps, &pops, &meds, &pts, &next,
			&row.ContactName, &row.ContactEmail, &row.ContactRole,
			&lang,
			&row.ChineseRepCandidate, &row.ChineseRepConfidence, &rsns,
			&row.Lat, &row.Lon,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		if err := unmarshalLeadJSON(&row, dms, svcs, tps, pops, meds, pts, next, lang, rsns); err != nil {
			return nil, err
		}
		leads = append(leads, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate leads")
	}
	return leads, nil
}

// RecordSyncRun appends a run summary.
func (s *SQLiteStore) RecordSyncRun(ctx context.Context, run SyncRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, kind, started_at, completed_at, processed, updated, errored)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		run.CompletedAt.UTC().Format("2006-01-02T15:04:05Z"),
		run.Processed, run.Updated, run.Errored,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record sync run %s", run.ID)
	}
	return nil
}
