package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/carebridge/leadsync-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Kept narrow so tests
// can substitute a pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used in tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	lead_id                    TEXT NOT NULL UNIQUE,
	name                       TEXT,
	address                    TEXT,
	phone                      TEXT,
	city                       TEXT,
	website                    TEXT,
	source                     TEXT NOT NULL DEFAULT 'dossier_pipeline',
	score                      INT NOT NULL DEFAULT 0,
	priority                   TEXT,
	overall_priority           INT,
	independence_score         INT,
	contactability_score       INT,
	pharma_fit_score           INT,
	partnership_openness_score INT,
	capacity_score             INT,
	sales_brief                TEXT,
	decision_makers            JSONB NOT NULL DEFAULT '[]',
	services_offered           JSONB NOT NULL DEFAULT '[]',
	talking_points             JSONB NOT NULL DEFAULT '[]',
	resident_populations       JSONB NOT NULL DEFAULT '[]',
	medication_signals         JSONB NOT NULL DEFAULT '[]',
	partnerships               JSONB NOT NULL DEFAULT '[]',
	next_step                  JSONB,
	contact_name               TEXT,
	contact_email              TEXT,
	contact_role               TEXT,
	languages_supported        JSONB NOT NULL DEFAULT '[]',
	chinese_rep_candidate      BOOLEAN NOT NULL DEFAULT FALSE,
	chinese_rep_confidence     TEXT NOT NULL DEFAULT 'none',
	chinese_rep_reasons        JSONB NOT NULL DEFAULT '[]',
	lat                        DOUBLE PRECISION,
	lon                        DOUBLE PRECISION,
	created_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_priority ON leads(priority);
CREATE INDEX IF NOT EXISTS idx_leads_rep_candidate ON leads(chinese_rep_candidate);

CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	processed    INT NOT NULL DEFAULT 0,
	updated      INT NOT NULL DEFAULT 0,
	errored      INT NOT NULL DEFAULT 0
);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// leadColumns lists the persisted columns in insert order; id and the
// timestamps are store-managed.
var leadColumns = []string{
	"lead_id", "name", "address", "phone", "city", "website", "source",
	"score", "priority",
	"overall_priority", "independence_score", "contactability_score",
	"pharma_fit_score", "partnership_openness_score", "capacity_score",
	"sales_brief",
	"decision_makers", "services_offered", "talking_points",
	"resident_populations", "medication_signals", "partnerships", "next_step",
	"contact_name", "contact_email", "contact_role",
	"languages_supported",
	"chinese_rep_candidate", "chinese_rep_confidence", "chinese_rep_reasons",
	"lat", "lon",
}

// updatableLeadColumns guards UpdateLeadFields against arbitrary column
// names; the polish pass only ever patches contact fields, coordinates are
// included for backfills.
var updatableLeadColumns = map[string]bool{
	"contact_name":  true,
	"contact_email": true,
	"contact_role":  true,
	"lat":           true,
	"lon":           true,
}

// upsertLeadSQL is built once from leadColumns.
var upsertLeadSQL = buildUpsertLeadSQL()

func buildUpsertLeadSQL() string {
	placeholders := make([]string, len(leadColumns))
	updates := make([]string, 0, len(leadColumns))
	for i, col := range leadColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "lead_id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(
		`INSERT INTO leads (%s) VALUES (%s) ON CONFLICT (lead_id) DO UPDATE SET %s, updated_at = now()`,
		strings.Join(leadColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// leadValues flattens a row into the leadColumns order, marshaling the
// embedded structured fields to JSON.
func leadValues(row *model.LeadRow) ([]any, error) {
	jsonFields := map[string]any{
		"decision_makers":      orEmptyList(row.DecisionMakers),
		"services_offered":     orEmptyStrings(row.ServicesOffered),
		"talking_points":       orEmptyAny(row.TalkingPoints),
		"resident_populations": orEmptyStrings(row.ResidentPopulations),
		"medication_signals":   orEmptyStrings(row.MedicationSignals),
		"partnerships":         orEmptyStrings(row.Partnerships),
		"languages_supported":  orEmptyStrings(row.LanguagesSupported),
		"chinese_rep_reasons":  orEmptyReasons(row.ChineseRepReasons),
	}
	marshaled := make(map[string][]byte, len(jsonFields)+1)
	for name, v := range jsonFields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal %s", name)
		}
		marshaled[name] = b
	}

	var nextStep []byte
	if row.NextStep != nil {
		b, err := json.Marshal(row.NextStep)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal next_step")
		}
		nextStep = b
	}

	return []any{
		row.LeadID, row.Name, row.Address, row.Phone, row.City, row.Website, row.Source,
		row.Score, row.Priority,
		row.OverallPriority, row.IndependenceScore, row.ContactabilityScore,
		row.PharmaFitScore, row.PartnershipOpennessScore, row.CapacityScore,
		row.SalesBrief,
		marshaled["decision_makers"], marshaled["services_offered"], marshaled["talking_points"],
		marshaled["resident_populations"], marshaled["medication_signals"], marshaled["partnerships"], nextStep,
		row.ContactName, row.ContactEmail, row.ContactRole,
		marshaled["languages_supported"],
		row.ChineseRepCandidate, row.ChineseRepConfidence, marshaled["chinese_rep_reasons"],
		row.Lat, row.Lon,
	}, nil
}

func orEmptyList(v []model.DecisionMaker) []model.DecisionMaker {
	if v == nil {
		return []model.DecisionMaker{}
	}
	return v
}

func orEmptyReasons(v []model.Reason) []model.Reason {
	if v == nil {
		return []model.Reason{}
	}
	return v
}

func orEmptyStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orEmptyAny(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}

// UpsertLead inserts or replaces a row keyed by lead_id.
func (s *PostgresStore) UpsertLead(ctx context.Context, row *model.LeadRow) error {
	values, err := leadValues(row)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertLeadSQL, values...); err != nil {
		return eris.Wrapf(err, "postgres: upsert lead %s", row.LeadID)
	}
	return nil
}

// UpdateLeadFields patches individual columns of one row in a single
// statement. Unknown column names are rejected.
func (s *PostgresStore) UpdateLeadFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableLeadColumns[col] {
			return eris.Errorf("postgres: column %s is not updatable", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, fields[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE leads SET %s, updated_at = now() WHERE id = $%d",
		strings.Join(sets, ", "), len(cols)+1)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: lead %d not found", id)
	}
	return nil
}

// ListLeads bulk-reads lead rows, oldest id first.
func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRow, error) {
	query := "SELECT id, " + strings.Join(leadColumns, ", ") + " FROM leads"
	if filter.CandidatesOnly {
		query += " WHERE chinese_rep_candidate = TRUE"
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
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
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		if err := unmarshalLeadJSON(&row, dms, svcs, tps, pops, meds, pts, next, lang, rsns); err != nil {
			return nil, err
		}
		leads = append(leads, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate leads")
	}
	return leads, nil
}

// unmarshalLeadJSON fills the structured fields from their stored JSON.
func unmarshalLeadJSON(row *model.LeadRow, dms, svcs, tps, pops, meds, pts, next, lang, rsns []byte) error {
	targets := []struct {
		name string
		data []byte
		dst  any
	}{
		{"decision_makers", dms, &row.DecisionMakers},
		{"services_offered", svcs, &row.ServicesOffered},
		{"talking_points", tps, &row.TalkingPoints},
		{"resident_populations", pops, &row.ResidentPopulations},
		{"medication_signals", meds, &row.MedicationSignals},
		{"partnerships", pts, &row.Partnerships},
		{"next_step", next, &row.NextStep},
		{"languages_supported", lang, &row.LanguagesSupported},
		{"chinese_rep_reasons", rsns, &row.ChineseRepReasons},
	}
	for _, t := range targets {
		if len(t.data) == 0 {
			continue
		}
		if err := json.Unmarshal(t.data, t.dst); err != nil {
			return eris.Wrapf(err, "postgres: unmarshal %s for lead %s", t.name, row.LeadID)
		}
	}
	return nil
}

// RecordSyncRun appends a run summary.
func (s *PostgresStore) RecordSyncRun(ctx context.Context, run SyncRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, kind, started_at, completed_at, processed, updated, errored)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Kind, run.StartedAt, run.CompletedAt, run.Processed, run.Updated, run.Errored,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record sync run %s", run.ID)
	}
	return nil
}
